package domain

// PipelineState tracks where an inquiry is in the pipeline. Every inbound
// event ends in exactly one of the terminal states so operators can audit
// what happened to it.
type PipelineState string

const (
	StateReceived       PipelineState = "received"
	StateTenantResolved PipelineState = "tenant_resolved"
	StateClassified     PipelineState = "classified"
	StateExtracted      PipelineState = "extracted"
	StateCommitted      PipelineState = "committed"
	StateNotified       PipelineState = "notified"
	StateRejected       PipelineState = "rejected"
	StateArchivedSpam   PipelineState = "archived_spam"
)

// Terminal reports whether the state ends processing for the inquiry.
func (s PipelineState) Terminal() bool {
	switch s {
	case StateNotified, StateRejected, StateArchivedSpam:
		return true
	}
	return false
}

var transitions = map[PipelineState][]PipelineState{
	StateReceived:       {StateTenantResolved, StateRejected},
	StateTenantResolved: {StateClassified, StateRejected},
	// Reprocessing re-enters at classified, so classified may loop.
	StateClassified: {StateExtracted, StateCommitted, StateArchivedSpam, StateClassified},
	StateExtracted:  {StateCommitted},
	// A crash between commit and notify retries the notify step only.
	StateCommitted: {StateNotified, StateCommitted},
	// Terminal states re-open only through reprocessing.
	StateNotified:     {StateClassified},
	StateArchivedSpam: {StateClassified},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to PipelineState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
