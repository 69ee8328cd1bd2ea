package tags

import (
	"encoding/json"
	"log"
)

type MergeOutcome int

const (
	MergeIgnored MergeOutcome = iota
	MergeInserted
	MergeUpdated
)

func (o MergeOutcome) String() string {
	switch o {
	case MergeInserted:
		return "inserted"
	case MergeUpdated:
		return "updated"
	default:
		return "ignored"
	}
}

// Reconciler folds remote machine snapshots into the local store under
// whole-machine last-writer-wins. Field-level merging is deliberately absent:
// the collection is append-mostly and conflicting concurrent edits to one
// machine are rare.
//
// Two machines independently created for the same physical object (for
// example during a network partition) are never merged automatically; an
// admin resolves the pair by deleting one of them.
type Reconciler struct {
	store *MachineStore
	snap  *Snapshotter
}

func NewReconciler(store *MachineStore, snap *Snapshotter) *Reconciler {
	return &Reconciler{store: store, snap: snap}
}

// Merge applies one remote snapshot. Unknown ids are inserted as-is; a newer
// UpdatedAt replaces the local machine wholesale; anything else is ignored.
// Merging the same snapshot twice is Ignored the second time.
func (r *Reconciler) Merge(remote *Machine) MergeOutcome {
	local := r.store.GetByID(remote.ID)
	if local == nil {
		r.store.Insert(remote.Clone())
		return MergeInserted
	}
	if remote.UpdatedAt.After(local.UpdatedAt) {
		r.store.Replace(remote.Clone())
		return MergeUpdated
	}
	return MergeIgnored
}

// MergeBatch decodes and merges a batch of raw records. A malformed record is
// logged and skipped; it never aborts the rest of the batch. The caller
// persists once afterwards via Persist.
func (r *Reconciler) MergeBatch(records []json.RawMessage) (inserted, updated, skipped int) {
	for _, raw := range records {
		m, err := decodeRecord(raw)
		if err != nil {
			log.Printf("[replica] %v", err)
			skipped++
			continue
		}
		switch r.Merge(m) {
		case MergeInserted:
			inserted++
		case MergeUpdated:
			updated++
		}
	}
	return inserted, updated, skipped
}

// Remove applies an explicit remote delete signal. Absence of a machine from
// a pull is never treated as deletion; only tombstoned records reach here.
func (r *Reconciler) Remove(id string) bool {
	return r.store.Delete(id)
}

// Persist snapshots the store after a batch of merges.
func (r *Reconciler) Persist() {
	if r.snap == nil {
		return
	}
	if err := r.snap.Save(r.store); err != nil {
		log.Printf("[replica] snapshot save failed: %v", err)
	}
}

func decodeRecord(raw json.RawMessage) (*Machine, error) {
	var m Machine
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, &MalformedRecordError{Reason: err.Error()}
	}
	if err := validateMachine(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// validateMachine checks the fields every machine record must carry, whether
// it arrives from a replica pull or an admin import. An empty status is
// normalized to pending.
func validateMachine(m *Machine) error {
	if m == nil {
		return &MalformedRecordError{Reason: "null machine"}
	}
	if m.ID == "" {
		return &MalformedRecordError{Reason: "missing id"}
	}
	if m.UpdatedAt.IsZero() {
		return &MalformedRecordError{ID: m.ID, Reason: "missing updated_at"}
	}
	if !(m.Location()).Valid() {
		return &MalformedRecordError{ID: m.ID, Reason: "invalid coordinates"}
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	return nil
}
