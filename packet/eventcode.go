package packet

// EventCode values are firmware feedback for outbound commands. They drive
// transient status messages only and are never persisted.
type EventCode uint8

const (
	EventTareDone    EventCode = 1
	EventZeroDone    EventCode = 2
	EventCalSet      EventCode = 3
	EventZeroPending EventCode = 10
	EventTarePending EventCode = 11
	EventFailed      EventCode = 99
)

func (e EventCode) String() string {
	switch e {
	case EventTareDone:
		return "Tare complete"
	case EventZeroDone:
		return "Zero complete"
	case EventCalSet:
		return "Calibration set"
	case EventZeroPending:
		return "Zero pending, clear the slot"
	case EventTarePending:
		return "Tare pending, place the bottle"
	case EventFailed:
		return "Command failed"
	default:
		return ""
	}
}

// Outbound command payloads, sent verbatim as ASCII bytes.
var (
	CommandTare = []byte("TARE")
	CommandZero = []byte("ZERO")
)
