package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/thushan/blaze/theme"
)

var (
	Name        = "blaze"
	Authors     = "Thushan Fernando"
	Description = "Batch driver for LLM-style JSON completion endpoints"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/thushan/blaze"
	GithubHomeUri   = "https://github.com/thushan/blaze"
	GithubLatestUri = "https://github.com/thushan/blaze/releases/latest"
)

// PrintVersionInfo prints the version banner. Blaze is invoked from
// scripts and CI far more often than interactively, so the banner is a
// single line; extendedInfo appends commit, build date and builder on
// further lines.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)

	var b strings.Builder
	b.WriteString(theme.ColourSplash(Name))
	b.WriteString(" ")
	b.WriteString(theme.ColourVersion(Version))
	b.WriteString(" - ")
	b.WriteString(Description)
	b.WriteString(" (")
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(")")

	if extendedInfo {
		b.WriteString(fmt.Sprintf("\n  Commit: %s\n   Built: %s\n   Using: %s", Commit, Date, User))
	}

	vlog.Println(b.String())
}
