package replica

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/db"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/tags"
)

// Row is the shared-table representation of a machine snapshot. The payload
// is the full machine JSON; status and device ids are denormalized for the
// confirmed-only pull filter and admin queries.
type Row struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	Payload   []byte         `gorm:"type:jsonb" json:"payload"`
	Status    string         `json:"status"`
	DeviceIDs pq.StringArray `gorm:"type:text[]" json:"device_ids"`
	Origin    string         `json:"origin"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	Deleted   bool           `json:"deleted"`
}

func (Row) TableName() string { return "automap_replica.machines" }

type EventType string

const (
	EventAdded    EventType = "added"
	EventModified EventType = "modified"
	EventRemoved  EventType = "removed"
)

// Event is one change delivered by a pull. Removed events carry only the id;
// the others carry the raw payload for the reconciler to decode.
type Event struct {
	Type    EventType
	ID      string
	Payload json.RawMessage
}

// Init ensures the replica schema and table exist.
func Init(d *gorm.DB) error {
	if err := db.EnsureSchema(d, "automap_replica"); err != nil {
		return err
	}
	return d.AutoMigrate(&Row{})
}

// Channel pushes and pulls machine snapshots through the shared table.
type Channel struct {
	db     *gorm.DB
	origin string
}

// NewChannel tags all outbound rows with origin, this node's pseudonym.
func NewChannel(d *gorm.DB, origin string) *Channel {
	return &Channel{db: d, origin: origin}
}

// Push upserts the machine snapshot. The row's UpdatedAt is the machine's own
// UpdatedAt, so last-writer-wins comparisons agree on both sides.
func (c *Channel) Push(ctx context.Context, m *tags.Machine) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal machine %s: %w", m.ID, err)
	}
	row := Row{
		ID:        m.ID,
		Payload:   payload,
		Status:    string(m.Status),
		DeviceIDs: pq.StringArray(m.DeviceIDs()),
		Origin:    c.origin,
		UpdatedAt: m.UpdatedAt,
		Deleted:   false,
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// PushDelete writes a tombstone. Remote deletion is always this explicit
// signal; peers never infer deletes from a machine's absence in a pull.
func (c *Channel) PushDelete(ctx context.Context, id string) error {
	row := Row{
		ID:        id,
		Origin:    c.origin,
		UpdatedAt: time.Now(),
		Deleted:   true,
	}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Pull returns events for rows changed after since, excluding this node's own
// writes. Live rows are filtered to confirmed machines, mirroring the
// reference listener; tombstones always come through. The returned time is
// the high-water mark for the next pull.
func (c *Channel) Pull(ctx context.Context, since time.Time) ([]Event, time.Time, error) {
	var rows []Row
	err := c.db.WithContext(ctx).
		Where("updated_at > ? AND origin <> ?", since, c.origin).
		Where("deleted = ? OR status = ?", true, string(tags.StatusConfirmed)).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, since, err
	}

	events := make([]Event, 0, len(rows))
	mark := since
	for _, row := range rows {
		if row.UpdatedAt.After(mark) {
			mark = row.UpdatedAt
		}
		if row.Deleted {
			events = append(events, Event{Type: EventRemoved, ID: row.ID})
			continue
		}
		events = append(events, Event{Type: EventModified, ID: row.ID, Payload: row.Payload})
	}
	return events, mark, nil
}
