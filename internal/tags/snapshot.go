package tags

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/kv"
)

// Storage keys, matching the reference client's localStorage layout.
const (
	machinesKey = "automap_machines"
	userTagsKey = "automap_user_tags"
)

// Snapshotter writes the full machine and user-tag collections to the
// key-value collaborator after every mutation and restores them at startup.
type Snapshotter struct {
	kv kv.Store
}

func NewSnapshotter(store kv.Store) *Snapshotter {
	return &Snapshotter{kv: store}
}

func (s *Snapshotter) Save(store *MachineStore) error {
	machines, err := json.Marshal(store.ListAll())
	if err != nil {
		return fmt.Errorf("marshal machines: %w", err)
	}
	userTags, err := json.Marshal(store.UserTags())
	if err != nil {
		return fmt.Errorf("marshal user tags: %w", err)
	}
	if err := s.kv.Set(machinesKey, machines); err != nil {
		return fmt.Errorf("set %s: %w", machinesKey, err)
	}
	if err := s.kv.Set(userTagsKey, userTags); err != nil {
		return fmt.Errorf("set %s: %w", userTagsKey, err)
	}
	return nil
}

// Load restores the collections into store. Missing keys mean a fresh
// install; corrupt values are logged and treated as empty, like the reference
// client does on a parse error.
func (s *Snapshotter) Load(store *MachineStore) error {
	var machines []*Machine
	data, ok, err := s.kv.Get(machinesKey)
	if err != nil {
		return fmt.Errorf("get %s: %w", machinesKey, err)
	}
	if ok {
		if err := json.Unmarshal(data, &machines); err != nil {
			log.Printf("[tags] corrupt machines snapshot, starting empty: %v", err)
			machines = nil
		}
	}

	var userTags []UserTag
	data, ok, err = s.kv.Get(userTagsKey)
	if err != nil {
		return fmt.Errorf("get %s: %w", userTagsKey, err)
	}
	if ok {
		if err := json.Unmarshal(data, &userTags); err != nil {
			log.Printf("[tags] corrupt user tags snapshot, starting empty: %v", err)
			userTags = nil
		}
	}

	store.Restore(machines, userTags)
	return nil
}
