package tags

import (
	"log"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/config"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/geo"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/utils"
)

// Engine applies the one-device-one-vote rule and the confirmation threshold
// whenever a tag is submitted. It is the only component allowed to change a
// machine's status.
type Engine struct {
	store *MachineStore
	cfg   config.Config
	snap  *Snapshotter
}

func NewEngine(store *MachineStore, cfg config.Config, snap *Snapshotter) *Engine {
	return &Engine{store: store, cfg: cfg, snap: snap}
}

// SubmitTag records one device's observation at (lat, lng).
//
// The submission is rejected with ErrDuplicateTag when the device already has
// a tag within MinTagDistanceMeters of the point, on any machine. Otherwise
// the tag is appended to the first machine within that radius, or to a newly
// created one, and the confirmation threshold is recomputed.
func (e *Engine) SubmitTag(lat, lng float64, deviceID, notes string) (*Machine, error) {
	if !(geo.Location{Lat: lat, Lng: lng}).Valid() {
		return nil, ErrInvalidCoordinate
	}

	// A device may not plant two proximate tags, even on different machines.
	// Slightly offset re-submissions would otherwise game the threshold.
	if existing := e.findNearbyTagByDevice(lat, lng, deviceID); existing != nil {
		return nil, ErrDuplicateTag
	}

	machine := e.store.FindMachineNear(lat, lng, e.cfg.MinTagDistanceMeters)
	if machine == nil {
		machine = e.store.CreateMachine(lat, lng)
	}

	tag := Tag{
		ID:        utils.GenerateUUID(),
		Lat:       lat,
		Lng:       lng,
		DeviceID:  deviceID,
		Timestamp: time.Now(),
		Notes:     norm.NFC.String(strings.TrimSpace(notes)),
	}
	e.store.AppendTag(machine, tag)
	e.recompute(machine, tag.Timestamp)

	e.store.AddUserTag(UserTag{
		MachineID:   machine.ID,
		TagID:       tag.ID,
		DeviceID:    deviceID,
		SubmittedAt: tag.Timestamp,
	})

	e.persist()
	return machine, nil
}

// recompute applies the threshold rule: a pending machine confirmed by enough
// distinct devices transitions to confirmed, exactly once. Confirmation is
// monotonic; appending tags never reverts it.
func (e *Engine) recompute(m *Machine, at time.Time) {
	if m.Confirmed() {
		return
	}
	if len(m.DeviceIDs()) >= e.cfg.MinTagsForValidation {
		m.Status = StatusConfirmed
		if m.ConfirmedAt == nil {
			confirmedAt := at
			m.ConfirmedAt = &confirmedAt
		}
		m.UpdatedAt = at
	}
}

// findNearbyTagByDevice scans every machine's tag list for a tag by deviceID
// within the minimum tag distance of the point.
func (e *Engine) findNearbyTagByDevice(lat, lng float64, deviceID string) *Tag {
	p := geo.Location{Lat: lat, Lng: lng}
	for _, m := range e.store.ListAll() {
		for i := range m.Tags {
			t := &m.Tags[i]
			if t.DeviceID == deviceID && geo.IsNearby(t.Location(), p, e.cfg.MinTagDistanceMeters) {
				return t
			}
		}
	}
	return nil
}

// AdminConfirm forces a pending machine to confirmed, bypassing the
// threshold. This is the only such path; it records who confirmed. Confirming
// an already confirmed machine is a no-op. Returns false for unknown ids.
func (e *Engine) AdminConfirm(id string) (*Machine, bool) {
	m := e.store.GetByID(id)
	if m == nil {
		return nil, false
	}
	if !m.Confirmed() {
		now := time.Now()
		m.Status = StatusConfirmed
		if m.ConfirmedAt == nil {
			m.ConfirmedAt = &now
		}
		m.ConfirmedBy = "admin"
		m.UpdatedAt = now
		e.persist()
	}
	return m, true
}

// AdminDelete removes a machine and its user-tag records. Idempotent: an
// unknown id returns false without error.
func (e *Engine) AdminDelete(id string) bool {
	if !e.store.Delete(id) {
		return false
	}
	e.persist()
	return true
}

// persist snapshots the collections through the key-value collaborator.
// Persistence failures are logged, not propagated: the in-memory mutation
// already happened and the next mutation retries the full snapshot anyway.
func (e *Engine) persist() {
	if e.snap == nil {
		return
	}
	if err := e.snap.Save(e.store); err != nil {
		log.Printf("[tags] snapshot save failed: %v", err)
	}
}
