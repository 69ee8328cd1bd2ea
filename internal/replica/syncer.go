package replica

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/AutoMap-DE/AutoMap-Backend/internal/tags"
)

// syncChannel is the transport the syncer drives. *Channel satisfies it.
type syncChannel interface {
	Pull(ctx context.Context, since time.Time) ([]Event, time.Time, error)
	Push(ctx context.Context, m *tags.Machine) error
	PushDelete(ctx context.Context, id string) error
}

// localService is the slice of the tag service the syncer needs.
type localService interface {
	ApplyRemote(records []json.RawMessage) (inserted, updated, skipped int)
	RemoveRemote(id string) bool
	ChangedConfirmedSince(t time.Time) []*tags.Machine
}

// Syncer reconciles the local store with the shared replica table on a fixed
// interval. Inbound events go through the service's reconciler (which
// serializes them against HTTP mutations); outbound pushes cover every
// confirmed machine changed since the previous pass. Channel errors are
// logged and retried on the next tick; every operation is idempotent, so
// blind retries are safe.
type Syncer struct {
	ch       syncChannel
	svc      localService
	interval time.Duration

	lastPull time.Time
	lastPush time.Time
}

func NewSyncer(ch *Channel, svc *tags.Service, interval time.Duration) *Syncer {
	return &Syncer{ch: ch, svc: svc, interval: interval}
}

// Run loops until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				log.Printf("[sync] pass failed, retrying next tick: %v", err)
			}
		}
	}
}

// SyncOnce performs one inbound pull and one outbound push.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	if err := s.pull(ctx); err != nil {
		return err
	}
	return s.push(ctx)
}

func (s *Syncer) pull(ctx context.Context) error {
	events, mark, err := s.ch.Pull(ctx, s.lastPull)
	if err != nil {
		return err
	}

	var records []json.RawMessage
	for _, ev := range events {
		switch ev.Type {
		case EventRemoved:
			if s.svc.RemoveRemote(ev.ID) {
				log.Printf("[sync] removed machine %s (remote delete)", ev.ID)
			}
		default:
			records = append(records, ev.Payload)
		}
	}
	if len(records) > 0 {
		inserted, updated, skipped := s.svc.ApplyRemote(records)
		log.Printf("[sync] pulled %d records: %d inserted, %d updated, %d skipped",
			len(records), inserted, updated, skipped)
	}

	s.lastPull = mark
	return nil
}

func (s *Syncer) push(ctx context.Context) error {
	// The next high-water mark is read before the snapshot. A machine
	// confirmed while the snapshot is being taken then lands in the next
	// pass instead of falling below the mark forever; Push is an idempotent
	// upsert, so the overlap at worst re-sends a row.
	start := time.Now()
	changed := s.svc.ChangedConfirmedSince(s.lastPush)
	for _, m := range changed {
		if err := s.ch.Push(ctx, m); err != nil {
			return err
		}
	}
	if len(changed) > 0 {
		log.Printf("[sync] pushed %d machines in %dms",
			len(changed), time.Since(start).Milliseconds())
	}
	s.lastPush = start
	return nil
}

// PushDelete propagates a local admin delete as a tombstone.
func (s *Syncer) PushDelete(ctx context.Context, id string) error {
	return s.ch.PushDelete(ctx, id)
}
