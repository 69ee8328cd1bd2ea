package replica

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/tags"
)

type fakeChannel struct {
	events  []Event
	pushed  []string
	deleted []string
}

func (f *fakeChannel) Pull(ctx context.Context, since time.Time) ([]Event, time.Time, error) {
	events := f.events
	f.events = nil
	return events, since, nil
}

func (f *fakeChannel) Push(ctx context.Context, m *tags.Machine) error {
	f.pushed = append(f.pushed, m.ID)
	return nil
}

func (f *fakeChannel) PushDelete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeService struct {
	machines []*tags.Machine
	applied  int
	removed  []string

	// onSnapshot, when set, runs inside ChangedConfirmedSince after the
	// read, mimicking a mutation that commits while the snapshot is taken.
	onSnapshot func()
}

func (f *fakeService) ApplyRemote(records []json.RawMessage) (int, int, int) {
	f.applied += len(records)
	return len(records), 0, 0
}

func (f *fakeService) RemoveRemote(id string) bool {
	f.removed = append(f.removed, id)
	return true
}

func (f *fakeService) ChangedConfirmedSince(t time.Time) []*tags.Machine {
	var out []*tags.Machine
	for _, m := range f.machines {
		if m.Confirmed() && m.UpdatedAt.After(t) {
			out = append(out, m)
		}
	}
	if f.onSnapshot != nil {
		f.onSnapshot()
	}
	return out
}

// TestSyncer_PushesConfirmedChanges verifies one pass pushes every confirmed
// machine changed since the previous pass, and an unchanged store pushes
// nothing on the next pass.
func TestSyncer_PushesConfirmedChanges(t *testing.T) {
	ch := &fakeChannel{}
	svc := &fakeService{machines: []*tags.Machine{
		{ID: "m1", Status: tags.StatusConfirmed, UpdatedAt: time.Now()},
		{ID: "m2", Status: tags.StatusPending, UpdatedAt: time.Now()},
	}}
	s := &Syncer{ch: ch, svc: svc, interval: time.Second}

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ch.pushed) != 1 || ch.pushed[0] != "m1" {
		t.Fatalf("expected only the confirmed machine pushed, got %v", ch.pushed)
	}

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ch.pushed) != 1 {
		t.Errorf("unchanged store must push nothing, got %v", ch.pushed)
	}
}

// TestSyncer_ConfirmationDuringSnapshotIsNotLost verifies a confirmation that
// commits while the outbound snapshot is being read still reaches the channel
// on the following pass rather than falling below the high-water mark.
func TestSyncer_ConfirmationDuringSnapshotIsNotLost(t *testing.T) {
	ch := &fakeChannel{}
	svc := &fakeService{}
	s := &Syncer{ch: ch, svc: svc, interval: time.Second}

	late := &tags.Machine{ID: "late", Status: tags.StatusConfirmed}
	svc.onSnapshot = func() {
		time.Sleep(time.Millisecond)
		late.UpdatedAt = time.Now()
		svc.machines = append(svc.machines, late)
		svc.onSnapshot = nil
	}

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ch.pushed) != 0 {
		t.Fatalf("first pass pushed %v, want none", ch.pushed)
	}

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(ch.pushed) != 1 || ch.pushed[0] != "late" {
		t.Errorf("confirmation lost between passes: pushed %v, want [late]", ch.pushed)
	}
}

// TestSyncer_PullRoutesEvents verifies tombstones become removals and live
// payloads reach the reconciler.
func TestSyncer_PullRoutesEvents(t *testing.T) {
	ch := &fakeChannel{events: []Event{
		{Type: EventRemoved, ID: "gone"},
		{Type: EventModified, ID: "m1", Payload: json.RawMessage(`{"id":"m1"}`)},
	}}
	svc := &fakeService{}
	s := &Syncer{ch: ch, svc: svc, interval: time.Second}

	if err := s.SyncOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(svc.removed) != 1 || svc.removed[0] != "gone" {
		t.Errorf("expected one removal for 'gone', got %v", svc.removed)
	}
	if svc.applied != 1 {
		t.Errorf("expected one payload applied, got %d", svc.applied)
	}
}

// TestSyncer_PushDelete verifies a local delete reaches the channel as a
// tombstone.
func TestSyncer_PushDelete(t *testing.T) {
	ch := &fakeChannel{}
	s := &Syncer{ch: ch, svc: &fakeService{}, interval: time.Second}

	if err := s.PushDelete(context.Background(), "m1"); err != nil {
		t.Fatal(err)
	}
	if len(ch.deleted) != 1 || ch.deleted[0] != "m1" {
		t.Errorf("expected tombstone for m1, got %v", ch.deleted)
	}
}
