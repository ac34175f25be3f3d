package service

import "github.com/MimeLyc/srt-line-translator/internal/subtitle"

// State is a step of a pipeline run
type State int

const (
	StateInit State = iota
	StateResuming
	StateTranslating
	StateCheckpointing
	StateDone
	StateFinalizing
	StateCleanup
	StateTerminated
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateResuming:
		return "RESUMING"
	case StateTranslating:
		return "TRANSLATING"
	case StateCheckpointing:
		return "CHECKPOINTING"
	case StateDone:
		return "DONE"
	case StateFinalizing:
		return "FINALIZING"
	case StateCleanup:
		return "CLEANUP"
	case StateTerminated:
		return "TERMINATED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateTerminated || s == StateAborted
}

// RunState is the mutable state of one run. Source is never modified; Output
// holds the confirmed entries, the first ResumeIndex of them loaded from the
// checkpoint.
type RunState struct {
	State       State
	Index       int // position in Source while translating
	ResumeIndex int
	Source      []subtitle.Line
	Output      []subtitle.Line
}
