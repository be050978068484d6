package pipeline

// State is a step of a turn. Result.States lists the steps a turn went
// through, starting and ending with StateIdle.
type State string

const (
	StateIdle               State = "IDLE"
	StateClassifying        State = "CLASSIFYING"
	StateRetrieving         State = "RETRIEVING"
	StatePrompting          State = "PROMPTING"
	StateStreaming          State = "STREAMING"
	StatePersisting         State = "PERSISTING"
	StateFallbackRetrieving State = "FALLBACK_RETRIEVING"
	StateFallbackStreaming  State = "FALLBACK_STREAMING"
	StateError              State = "ERROR"
)
