package connectivity

import "fmt"

// NMState is the global state reported by NetworkManager.
type NMState uint32

const (
	NMStateUnknown         NMState = 0
	NMStateAsleep          NMState = 10
	NMStateDisconnected    NMState = 20
	NMStateDisconnecting   NMState = 30
	NMStateConnecting      NMState = 40
	NMStateConnectedLocal  NMState = 50
	NMStateConnectedSite   NMState = 60
	NMStateConnectedGlobal NMState = 70
)

// check NMState compliance to its interface during compile time
var _ Raw = NMState(0)

func (s NMState) Normalize() (State, bool) {
	switch s {
	case NMStateConnectedGlobal:
		return Online, true
	case NMStateConnectedSite:
		return CaptivePortal, true
	case NMStateDisconnected:
		return Offline, true
	default:
		return Offline, false
	}
}

func (s NMState) String() string {
	switch s {
	case NMStateUnknown:
		return "UNKNOWN"
	case NMStateAsleep:
		return "ASLEEP"
	case NMStateDisconnected:
		return "DISCONNECTED"
	case NMStateDisconnecting:
		return "DISCONNECTING"
	case NMStateConnecting:
		return "CONNECTING"
	case NMStateConnectedLocal:
		return "CONNECTED_LOCAL"
	case NMStateConnectedSite:
		return "CONNECTED_SITE"
	case NMStateConnectedGlobal:
		return "CONNECTED_GLOBAL"
	default:
		return fmt.Sprintf("NMSTATE(%d)", uint32(s))
	}
}
