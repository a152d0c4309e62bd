package orchestrator

type State int32

const (
	StateIdle State = iota
	StateScanning
	StateEvaluating
	StateExecuting
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateEvaluating:
		return "evaluating"
	case StateExecuting:
		return "executing"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}
