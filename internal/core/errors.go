package core

import "errors"

// Common errors for engine and judge operations.
var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrEmptyTranscript = errors.New("nothing to evaluate yet")
)

// ParseError means the judge's output could not be read as the required JSON
// object.  The caller must surface "evaluation failed, please retry" and must
// not write a ledger row.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string { return "judge output parse failed: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }
