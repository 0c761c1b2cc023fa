package moderation

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"modbot/model"
	"modbot/utils/database"
)

// Store is the slice of the infraction store the moderation core needs.
type Store interface {
	Create(targetID, actorID int64, kind model.InfractionKind, reason string, expiresAt *time.Time) (model.Infraction, error)
	Get(id string) (model.Infraction, error)
	ListActiveByUser(targetID int64) ([]model.Infraction, error)
	ListActiveExpirable() ([]model.Infraction, error)
	SetActive(id string, active bool) error
	Count() (int64, error)
}

// Notifier delivers audit events. Publishing must never block or fail the
// infraction pipeline.
type Notifier interface {
	Publish(title, description string)
}

// Scheduler holds one live reversal timer per active temporary infraction.
// Timer handles are transient: after a restart RecoverAll re-derives them
// from the persisted expiry times, so reversals fire at-least-once and the
// idempotent revert absorbs duplicates.
type Scheduler struct {
	store    Store
	applier  *Applier
	notifier Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

// NewScheduler creates a Scheduler. Call Shutdown to stop pending timers.
func NewScheduler(store Store, applier *Applier, notifier Notifier) *Scheduler {
	return &Scheduler{
		store:    store,
		applier:  applier,
		notifier: notifier,
		timers:   make(map[string]*time.Timer),
	}
}

// ScheduleReversal registers a reversal timer for the infraction, due at
// dueAt. A due time in the past fires immediately rather than being
// dropped: an infraction that expired while the process was down must
// still be reverted. Re-registering the same infraction ID cancels the
// previous timer first.
func (s *Scheduler) ScheduleReversal(inf model.Infraction, dueAt time.Time) {
	delay := time.Until(dueAt)
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[inf.ID]; ok {
		old.Stop()
	}
	s.timers[inf.ID] = time.AfterFunc(delay, func() { s.fire(inf) })
}

// Cancel removes the timer for an infraction without firing it. Safe to
// call if the timer already fired or never existed.
func (s *Scheduler) Cancel(infractionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[infractionID]; ok {
		t.Stop()
		delete(s.timers, infractionID)
	}
}

// RecoverAll re-derives reversal timers from the persisted expiry times of
// all active temporary infractions. Called on startup; records whose
// expiry already passed fire immediately.
func (s *Scheduler) RecoverAll() error {
	records, err := s.store.ListActiveExpirable()
	if err != nil {
		return fmt.Errorf("failed to load expirable infractions: %w", err)
	}
	for _, inf := range records {
		s.ScheduleReversal(inf, inf.Expiry())
	}
	return nil
}

// Shutdown stops all pending timers. In-flight fires finish on their own;
// anything not yet reverted is recovered on the next startup.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of live reversal timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// fire reverts the infraction's effect, marks the record inactive and
// publishes the expiry event. The timer handle is only dropped afterwards,
// so a crash mid-fire leaves the record active and recoverable.
func (s *Scheduler) fire(inf model.Infraction) {
	if err := s.applier.Revert(inf.Kind, inf.TargetID, "Infraction expired: "+inf.ID); err != nil {
		// No retry here: the record stays active, so the next recovery or
		// full sync pass re-derives the timer and fires again.
		log.Printf("Failed to revert infraction %s: %v", inf.ID, err)
		s.remove(inf.ID)
		return
	}

	if err := s.store.SetActive(inf.ID, false); err != nil && !errors.Is(err, database.ErrNotFound) {
		log.Printf("Failed to deactivate infraction %s: %v", inf.ID, err)
	}

	s.notifier.Publish("Infraction Expired",
		fmt.Sprintf("<@%d> (`%d`) is no longer %s.", inf.TargetID, inf.TargetID, inf.Kind.ActionText()))

	s.remove(inf.ID)
}

func (s *Scheduler) remove(infractionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, infractionID)
}
