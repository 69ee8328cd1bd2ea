package tags

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/config"
	"github.com/AutoMap-DE/AutoMap-Backend/internal/kv"
)

// Service bundles the store, engine and reconciler behind a single mutex so
// HTTP submissions and the background sync loop never interleave mutations on
// the store. Reads take the same lock; the store itself is lock-free.
type Service struct {
	mu     sync.Mutex
	store  *MachineStore
	engine *Engine
	rec    *Reconciler
	cfg    config.Config

	// onDelete, when set, is told about local admin deletes so the replica
	// channel can write a tombstone. Called outside the lock.
	onDelete func(id string)
}

// NotifyDeletes registers the replica-side tombstone writer. Set once during
// wiring, before the service handles requests.
func (s *Service) NotifyDeletes(fn func(id string)) {
	s.onDelete = fn
}

// NewService wires the store, snapshotter, engine and reconciler together and
// restores the last snapshot from the key-value collaborator.
func NewService(cfg config.Config, kvStore kv.Store) (*Service, error) {
	store := NewMachineStore()
	snap := NewSnapshotter(kvStore)
	if err := snap.Load(store); err != nil {
		return nil, err
	}
	return &Service{
		store:  store,
		engine: NewEngine(store, cfg, snap),
		rec:    NewReconciler(store, snap),
		cfg:    cfg,
	}, nil
}

func (s *Service) Config() config.Config { return s.cfg }

func (s *Service) SubmitTag(lat, lng float64, deviceID, notes string) (*Machine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.engine.SubmitTag(lat, lng, deviceID, notes)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

func (s *Service) GetMachine(id string) *Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.store.GetByID(id)
	if m == nil {
		return nil
	}
	return m.Clone()
}

func (s *Service) ListMachines(includePending bool) []*Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if includePending {
		return cloneAll(s.store.ListAll())
	}
	return cloneAll(s.store.ListConfirmed())
}

func (s *Service) ListPending() []*Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.store.ListPending())
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Stats()
}

func (s *Service) HasUserTagged(machineID, deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.HasUserTagged(machineID, deviceID)
}

func (s *Service) AdminConfirm(id string) (*Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.engine.AdminConfirm(id)
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

func (s *Service) AdminDelete(id string) bool {
	s.mu.Lock()
	deleted := s.engine.AdminDelete(id)
	s.mu.Unlock()
	if deleted && s.onDelete != nil {
		s.onDelete(id)
	}
	return deleted
}

// ApplyRemote merges a batch of raw replica records and persists once.
func (s *Service) ApplyRemote(records []json.RawMessage) (inserted, updated, skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted, updated, skipped = s.rec.MergeBatch(records)
	if inserted+updated > 0 {
		s.rec.Persist()
	}
	return inserted, updated, skipped
}

// RemoveRemote applies an explicit remote delete signal.
func (s *Service) RemoveRemote(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.rec.Remove(id) {
		return false
	}
	s.rec.Persist()
	return true
}

// ChangedConfirmedSince returns confirmed machines mutated after t, for
// outbound replica pushes. The remote table only carries confirmed machines.
func (s *Service) ChangedConfirmedSince(t time.Time) []*Machine {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Machine
	for _, m := range s.store.ChangedSince(t) {
		if m.Confirmed() {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Export returns the full dataset in the reference client's export layout.
func (s *Service) Export() ExportData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ExportData{
		Machines:   cloneAll(s.store.ListAll()),
		UserTags:   s.store.UserTags(),
		ExportedAt: time.Now(),
	}
}

// Import replaces the dataset wholesale and persists. Every machine entry is
// validated up front; one malformed entry rejects the whole import, so a bad
// payload never replaces the current dataset.
func (s *Service) Import(data ExportData) error {
	machines := data.Machines
	if machines == nil {
		machines = []*Machine{}
	}
	for _, m := range machines {
		if err := validateMachine(m); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Restore(machines, data.UserTags)
	s.rec.Persist()
	return nil
}

type ExportData struct {
	Machines   []*Machine `json:"machines"`
	UserTags   []UserTag  `json:"user_tags"`
	ExportedAt time.Time  `json:"exported_at"`
}

func cloneAll(in []*Machine) []*Machine {
	out := make([]*Machine, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
