package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/PatternLab/backend/internal/domain/compiler"
	"github.com/GriffinCanCode/PatternLab/backend/internal/shared/types"
)

var (
	// ErrMalformedMessage is a payload that is not a well-formed result message
	ErrMalformedMessage = errors.New("malformed result message")
	// ErrStaleMessage is a well-formed message for a run other than the current one
	ErrStaleMessage = errors.New("stale result message")
)

// Result is one entry of a result message as posted by the realm
type Result struct {
	Index *int   `json:"index"`
	Name  string `json:"name"`
	Pass  *bool  `json:"pass"`
	Error string `json:"error,omitempty"`
}

// Message is the host-to-coordinator result payload
type Message struct {
	Type    string   `json:"type"`
	RunID   *int64   `json:"runId"`
	Results []Result `json:"results"`
}

// Decode parses a payload and checks its shape. It does not check which
// run the message belongs to; see Validate.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if m.Type != compiler.MessageType {
		return nil, fmt.Errorf("%w: unexpected type %q", ErrMalformedMessage, m.Type)
	}
	if m.RunID == nil {
		return nil, fmt.Errorf("%w: missing runId", ErrMalformedMessage)
	}
	if m.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedMessage)
	}
	for i, r := range m.Results {
		if r.Index == nil || r.Pass == nil {
			return nil, fmt.Errorf("%w: result %d incomplete", ErrMalformedMessage, i)
		}
	}
	return &m, nil
}

// Validate checks that m reports the current run with one result per
// assertion in registry order, and converts it to grading results.
func (m *Message) Validate(runID int64, assertions []types.Assertion) ([]types.GradingResult, error) {
	if *m.RunID != runID {
		return nil, fmt.Errorf("%w: run %d, want %d", ErrStaleMessage, *m.RunID, runID)
	}
	if len(m.Results) != len(assertions) {
		return nil, fmt.Errorf("%w: %d results for %d assertions", ErrMalformedMessage, len(m.Results), len(assertions))
	}

	out := make([]types.GradingResult, len(m.Results))
	for i, r := range m.Results {
		if *r.Index != assertions[i].Index {
			return nil, fmt.Errorf("%w: result %d has index %d", ErrMalformedMessage, i, *r.Index)
		}
		out[i] = types.GradingResult{
			AssertionIndex: *r.Index,
			Name:           assertions[i].Name,
			Pass:           *r.Pass,
			Error:          r.Error,
		}
	}
	return out, nil
}

// Parse decodes and validates in one step
func Parse(data []byte, runID int64, assertions []types.Assertion) ([]types.GradingResult, error) {
	m, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return m.Validate(runID, assertions)
}
