package tags

import (
	"testing"
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/kv"
)

// TestSnapshot_RoundTrip verifies a saved store is restored with machines,
// statuses and user tags intact.
func TestSnapshot_RoundTrip(t *testing.T) {
	mem := kv.NewMemStore()
	snap := NewSnapshotter(mem)

	store := NewMachineStore()
	m := store.CreateMachine(50.0, 8.0)
	store.AppendTag(m, Tag{ID: "t1", Lat: 50.0, Lng: 8.0, DeviceID: "d1", Timestamp: time.Now(), Notes: "am Bahnhof"})
	store.AddUserTag(UserTag{MachineID: m.ID, TagID: "t1", DeviceID: "d1", SubmittedAt: time.Now()})

	if err := snap.Save(store); err != nil {
		t.Fatal(err)
	}

	restored := NewMachineStore()
	if err := snap.Load(restored); err != nil {
		t.Fatal(err)
	}

	got := restored.GetByID(m.ID)
	if got == nil {
		t.Fatal("expected machine restored")
	}
	if len(got.Tags) != 1 || got.Tags[0].Notes != "am Bahnhof" {
		t.Errorf("tags not restored: %+v", got.Tags)
	}
	if !restored.HasUserTagged(m.ID, "d1") {
		t.Error("user tags not restored")
	}
	if stats := restored.Stats(); stats.Total != 1 || stats.UserTags != 1 {
		t.Errorf("unexpected stats after restore: %+v", stats)
	}
}

// TestSnapshot_FreshInstall verifies loading from an empty store yields empty
// collections rather than an error.
func TestSnapshot_FreshInstall(t *testing.T) {
	snap := NewSnapshotter(kv.NewMemStore())
	store := NewMachineStore()

	if err := snap.Load(store); err != nil {
		t.Fatal(err)
	}
	if stats := store.Stats(); stats.Total != 0 || stats.UserTags != 0 {
		t.Errorf("expected empty store, got %+v", stats)
	}
}

// TestSnapshot_CorruptData verifies corrupt snapshot values are treated as
// empty, matching the reference client's behavior on a parse error.
func TestSnapshot_CorruptData(t *testing.T) {
	mem := kv.NewMemStore()
	if err := mem.Set("automap_machines", []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if err := mem.Set("automap_user_tags", []byte("[broken")); err != nil {
		t.Fatal(err)
	}

	snap := NewSnapshotter(mem)
	store := NewMachineStore()
	if err := snap.Load(store); err != nil {
		t.Fatalf("corrupt data must not fail the load: %v", err)
	}
	if stats := store.Stats(); stats.Total != 0 {
		t.Errorf("expected empty store after corrupt load, got %+v", stats)
	}
}
