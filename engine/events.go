package engine

import (
	"fmt"
	"time"

	"github.com/medisense/pillslot-monitor/packet"
)

// EventCategory is the discrete classification derived from packet flags.
type EventCategory string

const (
	CategoryTaken      EventCategory = "TAKEN"
	CategoryRemoved    EventCategory = "REMOVED"
	CategoryUnexpected EventCategory = "UNEXPECTED"
)

// EventRecord is one entry in the newest-first event log.
type EventRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	SlotID    uint8         `json:"slotId"`
	Category  EventCategory `json:"category"`
	Detail    string        `json:"detail"`
}

// eventLogCap bounds the event log, entries past index 30 are discarded.
const eventLogCap = 30

// categoryPrecedence lists flag bits highest priority first. Only the first
// match is recorded per packet to keep the event feed legible. A stable-only
// packet produces no record.
var categoryPrecedence = []struct {
	flag     uint8
	category EventCategory
}{
	{packet.FlagRemoved, CategoryRemoved},
	{packet.FlagTaken, CategoryTaken},
	{packet.FlagUnexpected, CategoryUnexpected},
}

// deriveEvent maps flag bits and packet fields to at most one event record.
func deriveEvent(slotID uint8, flags uint8, deltaMilligrams int16, medicationName string, now time.Time) *EventRecord {
	for _, p := range categoryPrecedence {
		if flags&p.flag == 0 {
			continue
		}
		return &EventRecord{
			Timestamp: now,
			SlotID:    slotID,
			Category:  p.category,
			Detail:    eventDetail(p.category, deltaMilligrams, medicationName),
		}
	}
	return nil
}

func eventDetail(category EventCategory, deltaMilligrams int16, medicationName string) string {
	switch category {
	case CategoryRemoved:
		return fmt.Sprintf("%s: bottle removed", medicationName)
	case CategoryTaken:
		return fmt.Sprintf("%s: dose taken, %+.3f g", medicationName, float64(deltaMilligrams)/1000)
	case CategoryUnexpected:
		return fmt.Sprintf("%s: unexpected change, %+.3f g", medicationName, float64(deltaMilligrams)/1000)
	default:
		return medicationName
	}
}

// pushEvent inserts at the front (newest first) and trims to the cap.
func pushEvent(log []EventRecord, record EventRecord) []EventRecord {
	log = append([]EventRecord{record}, log...)
	if len(log) > eventLogCap {
		log = log[:eventLogCap]
	}
	return log
}
