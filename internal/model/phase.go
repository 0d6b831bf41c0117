package model

// PipelinePhase is a named stage of a streaming analysis run, used for
// progress reporting. Phases advance strictly forward; the error phase is
// a parallel terminal reachable from any non-terminal phase.
type PipelinePhase string

const (
	PhaseIdle              PipelinePhase = "idle"
	PhaseDiscoveryStarted  PipelinePhase = "discovery-started"
	PhaseScanStarted       PipelinePhase = "scan-started"
	PhaseAnalysisStarted   PipelinePhase = "analysis-started"
	PhaseAnalysisCompleted PipelinePhase = "analysis-completed"
	PhaseAllScansCompleted PipelinePhase = "all-scans-completed"
	PhaseComplete          PipelinePhase = "complete"
	PhaseError             PipelinePhase = "error"
)

// Label returns the human-readable string carried on phase-changed events.
func (p PipelinePhase) Label() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseDiscoveryStarted:
		return "Discovering competitors"
	case PhaseScanStarted:
		return "Scanning competitors"
	case PhaseAnalysisStarted:
		return "Analyzing positioning gaps"
	case PhaseAnalysisCompleted:
		return "Analysis complete"
	case PhaseAllScansCompleted:
		return "Finalizing insights"
	case PhaseComplete:
		return "Complete"
	case PhaseError:
		return "Failed"
	default:
		return string(p)
	}
}

// Terminal reports whether the phase ends a run.
func (p PipelinePhase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}
