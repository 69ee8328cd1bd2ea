package tags

import (
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/geo"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Tag is a single device's observation of a machine. Immutable once created.
type Tag struct {
	ID        string    `json:"id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

func (t Tag) Location() geo.Location {
	return geo.Location{Lat: t.Lat, Lng: t.Lng}
}

// Machine is a candidate or confirmed vending machine. Its location is the
// location of the first tag and is never recomputed as a centroid.
type Machine struct {
	ID          string     `json:"id"`
	Lat         float64    `json:"lat"`
	Lng         float64    `json:"lng"`
	Tags        []Tag      `json:"tags"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy string     `json:"confirmed_by,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (m *Machine) Location() geo.Location {
	return geo.Location{Lat: m.Lat, Lng: m.Lng}
}

func (m *Machine) Confirmed() bool {
	return m.Status == StatusConfirmed
}

// DeviceIDs returns the distinct device pseudonyms across the machine's tags,
// in first-seen order. The confirmation threshold counts these, never the raw
// tag count.
func (m *Machine) DeviceIDs() []string {
	seen := make(map[string]struct{}, len(m.Tags))
	var ids []string
	for _, t := range m.Tags {
		if _, ok := seen[t.DeviceID]; ok {
			continue
		}
		seen[t.DeviceID] = struct{}{}
		ids = append(ids, t.DeviceID)
	}
	return ids
}

// Clone returns a deep copy, so merged or pushed snapshots never alias the
// store's own tag slices.
func (m *Machine) Clone() *Machine {
	out := *m
	out.Tags = make([]Tag, len(m.Tags))
	copy(out.Tags, m.Tags)
	if m.ConfirmedAt != nil {
		at := *m.ConfirmedAt
		out.ConfirmedAt = &at
	}
	return &out
}

// UserTag records that the local node created a tag on a machine. It answers
// "has this device already voted here" locally; the authoritative record is
// the tag inside the machine itself.
type UserTag struct {
	MachineID   string    `json:"machine_id"`
	TagID       string    `json:"tag_id"`
	DeviceID    string    `json:"device_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Stats is the counts panel consumed by the UI and admin surfaces.
type Stats struct {
	Total     int `json:"total"`
	Validated int `json:"validated"`
	Pending   int `json:"pending"`
	UserTags  int `json:"user_tags"`
}
