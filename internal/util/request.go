package util

import (
	"fmt"
	"math/rand"
)

// GenerateRunID produces a human-readable correlation id for a run,
// used in log lines so overlapping batch runs writing to the same log
// directory can be told apart.
func GenerateRunID() string {
	adjectives := []string{
		"roaring", "crackling", "smouldering", "flickering", "glowing",
		"searing", "kindled", "radiant", "scorching", "steady",
		"wild", "bright", "fierce", "quiet", "restless",
	}
	nouns := []string{
		"ember", "spark", "flame", "torch", "beacon",
		"furnace", "bonfire", "flare", "cinder", "wick",
		"hearth", "pyre", "lantern", "tinder", "forge",
	}

	adjective := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	suffix := fmt.Sprintf("%04x", rand.Intn(65536))

	return fmt.Sprintf("%s_%s_%s", adjective, noun, suffix)
}
