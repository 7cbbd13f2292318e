package domain

import (
	"encoding/json"
	"fmt"
)

// RequestRecord is one parsed input line. Body holds either the raw
// {"body": ...} object passed through verbatim, or nil when Input is
// set and the endpoint's template should be used to build the body.
type RequestRecord struct {
	Line     int64
	Original json.RawMessage // the decoded-then-reencoded source line, echoed verbatim in output
	Input    string
	Body     json.RawMessage
	HasInput bool
}

// ParseRequestRecord decodes one JSONL line into a RequestRecord.
// It recognises exactly two shapes, {"input": ...} and {"body": ...};
// any other shape is reported as an error so the caller can route it to
// the error file as an invalid_input record.
func ParseRequestRecord(line int64, raw []byte) (*RequestRecord, error) {
	var probe struct {
		Input *string         `json:"input"`
		Body  json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	if probe.Input == nil && len(probe.Body) == 0 {
		return nil, fmt.Errorf("record has neither 'input' nor 'body'")
	}

	// Re-encode the decoded value so Original is canonical JSON, not a
	// byte copy of the source line with its incidental whitespace.
	var echo any
	if err := json.Unmarshal(raw, &echo); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	original, err := json.Marshal(echo)
	if err != nil {
		return nil, fmt.Errorf("re-encode failed: %w", err)
	}

	rec := &RequestRecord{
		Line:     line,
		Original: original,
		Body:     probe.Body,
	}
	if probe.Input != nil {
		rec.Input = *probe.Input
		rec.HasInput = true
	}
	return rec, nil
}

// OutcomeRecord is the writer-side terminal result for one RequestRecord.
type OutcomeRecord struct {
	Response   json.RawMessage
	Error      string
	Input      json.RawMessage
	Endpoint   string
	StatusCode *int
	LatencyMs  int64
	Attempts   int
	Success    bool

	// BytesIn/BytesOut are the summed request/response sizes across every
	// attempt for this record; they never appear in the JSONL output but
	// feed Tracker's bytes_in/bytes_out counters.
	BytesIn  int64
	BytesOut int64
}

// Retries reports how many attempts beyond the first this record
// consumed, for Tracker's retries counter.
func (o *OutcomeRecord) Retries() int {
	if o.Attempts <= 1 {
		return 0
	}
	return o.Attempts - 1
}

type successLine struct {
	Input    json.RawMessage `json:"input"`
	Response json.RawMessage `json:"response"`
	Metadata metadata        `json:"metadata"`
}

type metadata struct {
	Endpoint  string `json:"endpoint"`
	LatencyMs int64  `json:"latency_ms"`
	Attempts  int    `json:"attempts"`
}

type errorLine struct {
	Input      json.RawMessage `json:"input"`
	Error      string          `json:"error"`
	StatusCode *int            `json:"status_code"`
	Attempts   int             `json:"attempts"`
}

// MarshalJSONLine encodes the outcome as a success or error JSONL line.
func (o *OutcomeRecord) MarshalJSONLine() ([]byte, error) {
	if o.Success {
		return json.Marshal(successLine{
			Input:    o.Input,
			Response: o.Response,
			Metadata: metadata{
				Endpoint:  o.Endpoint,
				LatencyMs: o.LatencyMs,
				Attempts:  o.Attempts,
			},
		})
	}
	return json.Marshal(errorLine{
		Input:      o.Input,
		Error:      o.Error,
		StatusCode: o.StatusCode,
		Attempts:   o.Attempts,
	})
}
