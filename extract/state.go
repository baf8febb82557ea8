package extract

// State is the lifecycle of one extraction run.
type State string

const (
	// StateIdle is the state before the first attempt starts.
	StateIdle State = "idle"

	// StateAttempting covers the generation loop, including retries.
	StateAttempting State = "attempting"

	// StateSucceeded is terminal: a parsed value was produced.
	StateSucceeded State = "succeeded"

	// StateFailed is terminal: attempts were exhausted or a
	// non-retryable failure occurred.
	StateFailed State = "failed"
)

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}
