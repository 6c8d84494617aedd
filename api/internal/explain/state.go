package explain

// State is the lifecycle of one request. It only moves forward; Completed and Failed are terminal.
type State int

const (
	Received State = iota
	Validated
	Classified
	Assembled
	Dispatched
	Completed
	Failed
)

var stateNames = [...]string{"received", "validated", "classified", "assembled", "dispatched", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) Terminal() bool { return s == Completed || s == Failed }
