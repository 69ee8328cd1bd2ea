package tags

import (
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/geo"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/utils"
)

// MachineStore owns the authoritative in-memory machine collection and the
// local user-tag records. It preserves insertion order and is the single
// source of truth for machine status; status only changes through the engine.
//
// The store is not safe for concurrent use. Callers serialize mutations
// (the Service does this behind one lock).
type MachineStore struct {
	machines []*Machine
	byID     map[string]*Machine
	userTags []UserTag
}

func NewMachineStore() *MachineStore {
	return &MachineStore{byID: make(map[string]*Machine)}
}

// FindMachineNear returns the first machine in storage order within
// radiusMeters of the point, or nil. First match wins even when a later
// machine is closer; changing this to nearest-wins changes which machine
// absorbs borderline tags.
func (s *MachineStore) FindMachineNear(lat, lng, radiusMeters float64) *Machine {
	p := geo.Location{Lat: lat, Lng: lng}
	for _, m := range s.machines {
		if geo.IsNearby(m.Location(), p, radiusMeters) {
			return m
		}
	}
	return nil
}

// CreateMachine adds a new pending machine anchored at the given point.
func (s *MachineStore) CreateMachine(lat, lng float64) *Machine {
	now := time.Now()
	m := &Machine{
		ID:        utils.GenerateUUID(),
		Lat:       lat,
		Lng:       lng,
		Tags:      []Tag{},
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.put(m)
	return m
}

// AppendTag appends t to the machine and bumps UpdatedAt. It never decides
// status; the engine recomputes that after every append.
func (s *MachineStore) AppendTag(m *Machine, t Tag) {
	m.Tags = append(m.Tags, t)
	m.UpdatedAt = time.Now()
}

func (s *MachineStore) GetByID(id string) *Machine {
	return s.byID[id]
}

// Delete removes the machine and purges any user tags referencing it.
// Deleting an absent id is a no-op returning false.
func (s *MachineStore) Delete(id string) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, m := range s.machines {
		if m.ID == id {
			s.machines = append(s.machines[:i], s.machines[i+1:]...)
			break
		}
	}
	kept := s.userTags[:0]
	for _, ut := range s.userTags {
		if ut.MachineID != id {
			kept = append(kept, ut)
		}
	}
	s.userTags = kept
	return true
}

// Insert adds a machine that already carries an id, appending it in storage
// order. Used by the reconciler for machines first seen on a remote replica.
func (s *MachineStore) Insert(m *Machine) {
	s.put(m)
}

// Replace swaps the stored machine with the same id, keeping its position in
// storage order. Returns false if the id is unknown.
func (s *MachineStore) Replace(m *Machine) bool {
	if _, ok := s.byID[m.ID]; !ok {
		return false
	}
	for i, existing := range s.machines {
		if existing.ID == m.ID {
			s.machines[i] = m
			break
		}
	}
	s.byID[m.ID] = m
	return true
}

func (s *MachineStore) put(m *Machine) {
	s.machines = append(s.machines, m)
	s.byID[m.ID] = m
}

// ListAll returns every machine in storage (insertion) order.
func (s *MachineStore) ListAll() []*Machine {
	out := make([]*Machine, len(s.machines))
	copy(out, s.machines)
	return out
}

func (s *MachineStore) ListConfirmed() []*Machine {
	return s.filter(func(m *Machine) bool { return m.Confirmed() })
}

func (s *MachineStore) ListPending() []*Machine {
	return s.filter(func(m *Machine) bool { return !m.Confirmed() })
}

func (s *MachineStore) filter(keep func(*Machine) bool) []*Machine {
	var out []*Machine
	for _, m := range s.machines {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

// ChangedSince returns machines whose UpdatedAt is after t, in storage order.
func (s *MachineStore) ChangedSince(t time.Time) []*Machine {
	return s.filter(func(m *Machine) bool { return m.UpdatedAt.After(t) })
}

func (s *MachineStore) AddUserTag(ut UserTag) {
	s.userTags = append(s.userTags, ut)
}

func (s *MachineStore) UserTags() []UserTag {
	out := make([]UserTag, len(s.userTags))
	copy(out, s.userTags)
	return out
}

// HasUserTagged reports whether deviceID has a vote record on the machine.
// Records from snapshots predating device attribution carry no device id and
// never match.
func (s *MachineStore) HasUserTagged(machineID, deviceID string) bool {
	for _, ut := range s.userTags {
		if ut.MachineID == machineID && ut.DeviceID == deviceID {
			return true
		}
	}
	return false
}

func (s *MachineStore) Stats() Stats {
	stats := Stats{
		Total:    len(s.machines),
		UserTags: len(s.userTags),
	}
	for _, m := range s.machines {
		if m.Confirmed() {
			stats.Validated++
		} else {
			stats.Pending++
		}
	}
	return stats
}

// Restore replaces the store contents wholesale, used when loading a snapshot
// at startup or importing an exported dataset.
func (s *MachineStore) Restore(machines []*Machine, userTags []UserTag) {
	s.machines = machines
	s.byID = make(map[string]*Machine, len(machines))
	for _, m := range machines {
		s.byID[m.ID] = m
	}
	s.userTags = userTags
}
