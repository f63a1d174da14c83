package connectivity

type State int

const (
	Offline State = iota
	Online
	CaptivePortal
)

func (s State) String() string {
	switch s {
	case Offline:
		return "OFFLINE"
	case Online:
		return "ONLINE"
	case CaptivePortal:
		return "CAPTIVE PORTAL"
	default:
		return "INVALID STATE"
	}
}

// Raw is a connectivity value as reported by a source. Normalize returns
// false when the value carries no transition and must be ignored.
type Raw interface {
	Normalize() (State, bool)
}
