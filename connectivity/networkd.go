package connectivity

// OperationalState is the aggregated operational state of
// systemd-networkd, e.g. "routable", "degraded" or "off".
type OperationalState string

// OperationalStateRoutable only tells that a route exists. Whether the
// internet is actually reachable has to be verified by a probe.
const OperationalStateRoutable OperationalState = "routable"

var _ Raw = OperationalState("")

func (s OperationalState) Normalize() (State, bool) {
	switch s {
	case "":
		// property missing or malformed
		return Offline, false
	case OperationalStateRoutable:
		return Online, true
	default:
		return Offline, true
	}
}
