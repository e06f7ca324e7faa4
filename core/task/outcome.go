// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

// DefaultBufferSize bounds a single read.
const DefaultBufferSize = 4096

// Outcome classifies one bounded read attempt.
type Outcome uint8

const (
	// OutcomeData means bytes were read; more may follow.
	OutcomeData Outcome = iota + 1
	// OutcomeEOF means the stream ended. Terminal.
	OutcomeEOF
	// OutcomeWouldBlock means no data is available right now.
	OutcomeWouldBlock
)

func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "data"
	case OutcomeEOF:
		return "eof"
	case OutcomeWouldBlock:
		return "would_block"
	default:
		return "unknown"
	}
}

// ReadResult is the outcome of ReadOnce. Data is non-empty only for
// OutcomeData and aliases the caller's buffer until the next read into it.
type ReadResult struct {
	Outcome Outcome
	Data    []byte
}
