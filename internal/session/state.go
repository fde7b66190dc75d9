package session

// State is the controller's position in the menu lifecycle.
type State int

const (
	Idle State = iota
	Loading
	Ready
	TranscribingFile
	Recording
	Exited
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case TranscribingFile:
		return "transcribing-file"
	case Recording:
		return "recording"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}
