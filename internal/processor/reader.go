package processor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/tracker"
)

// maxLineSize bounds a single JSONL record; generous enough for large
// prompt bodies without letting one malformed line exhaust memory.
const maxLineSize = 16 * 1024 * 1024

// readResult is what reader sends downstream: either a parsed record
// ready for a worker, or a pre-formed error outcome for a line that
// failed to parse.
type readResult struct {
	record  *domain.RequestRecord
	invalid *domain.OutcomeRecord
}

// readInput streams inputPath line by line, pushing each onto out.
// Malformed lines never reach a worker: they're turned into an
// invalid_input OutcomeRecord right here and still counted against
// recordsRead. Returns the total line count and the first fatal I/O
// error encountered, if any; context cancellation is not treated as
// fatal.
func readInput(ctx context.Context, inputPath string, trk *tracker.Tracker, out chan<- readResult) (int64, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("opening input %s: %w", inputPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var lineNo int64
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			lineNo--
			continue
		}
		trk.RecordRead()

		rec, parseErr := domain.ParseRequestRecord(lineNo, line)
		var result readResult
		if parseErr != nil {
			invalid := &domain.InvalidInputError{Line: lineNo, Err: parseErr}
			result = readResult{invalid: &domain.OutcomeRecord{
				Error:    invalid.Error(),
				Input:    echoRaw(line),
				Attempts: 0,
				Success:  false,
			}}
		} else {
			result = readResult{record: rec}
		}

		select {
		case out <- result:
		case <-ctx.Done():
			return lineNo, nil
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		return lineNo, fmt.Errorf("reading input %s: %w", inputPath, err)
	}
	return lineNo, nil
}

// echoRaw prepares a rejected line for the error stream's input field.
// A line that is valid JSON (just the wrong shape) is echoed as-is; a
// line that is not JSON at all must be quoted into a JSON string or the
// error record itself would fail to serialize.
func echoRaw(line []byte) json.RawMessage {
	if json.Valid(line) {
		return append([]byte(nil), line...)
	}
	quoted, err := json.Marshal(string(line))
	if err != nil {
		return json.RawMessage(`null`)
	}
	return quoted
}
