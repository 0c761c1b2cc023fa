package moderation

import (
	"errors"
	"fmt"
	"log"
	"time"

	"modbot/model"
	"modbot/platform"
	"modbot/utils/database"
)

var (
	// ErrInvalidDuration is returned for zero or negative durations.
	// Permanent infractions are expressed by omitting the duration.
	ErrInvalidDuration = errors.New("duration must be positive; omit it for a permanent infraction")

	// ErrNotExpirable is returned when a duration is given for a kind
	// that cannot expire.
	ErrNotExpirable = errors.New("this infraction kind cannot have a duration")

	// ErrTargetAbsent is returned when the kind requires the target to be
	// a guild member and they are not.
	ErrTargetAbsent = errors.New("target user is not in the guild")

	// ErrNoActiveInfraction is returned by Pardon when the target has no
	// active infraction of the requested kind.
	ErrNoActiveInfraction = errors.New("no active infraction of that kind for this user")
)

// CreateRequest describes a new infraction. A nil Duration means the
// infraction is permanent.
type CreateRequest struct {
	Kind     model.InfractionKind
	TargetID int64
	ActorID  int64
	Reason   string
	Duration *time.Duration
}

// Service is the command-facing entry point to the infraction pipeline:
// persist the record, apply the remote effect, schedule the reversal.
type Service struct {
	store     Store
	applier   *Applier
	scheduler *Scheduler
	client    platform.Client
	notifier  Notifier
}

// NewService wires the infraction pipeline together.
func NewService(store Store, applier *Applier, scheduler *Scheduler, client platform.Client, notifier Notifier) *Service {
	return &Service{
		store:     store,
		applier:   applier,
		scheduler: scheduler,
		client:    client,
		notifier:  notifier,
	}
}

// Create validates the request, persists the infraction, applies its
// remote effect and, for temporary kinds, schedules the reversal, in that
// order. The returned infraction is valid even when the remote apply
// failed; the sync engine re-drives remote state on its next pass.
func (s *Service) Create(req CreateRequest) (model.Infraction, error) {
	if !req.Kind.Valid() {
		return model.Infraction{}, fmt.Errorf("unknown infraction kind %q", req.Kind)
	}
	if req.Duration != nil {
		if !req.Kind.Expirable() {
			return model.Infraction{}, ErrNotExpirable
		}
		if *req.Duration <= 0 {
			return model.Infraction{}, ErrInvalidDuration
		}
	}
	if req.Kind.RequiresPresence() {
		if _, err := s.client.GetMember(req.TargetID); err != nil {
			if errors.Is(err, platform.ErrNotFound) {
				return model.Infraction{}, ErrTargetAbsent
			}
			return model.Infraction{}, err
		}
	}

	var expiresAt *time.Time
	if req.Duration != nil {
		t := time.Now().Add(*req.Duration)
		expiresAt = &t
	}

	inf, err := s.store.Create(req.TargetID, req.ActorID, req.Kind, req.Reason, expiresAt)
	if err != nil {
		return model.Infraction{}, err
	}

	s.relay(inf)

	applyErr := s.applier.Apply(inf.Kind, inf.TargetID, fmt.Sprintf("Infraction: %s", inf.ID))

	if inf.ExpiresAt != nil {
		s.scheduler.ScheduleReversal(inf, inf.Expiry())
	}

	s.notifier.Publish("Infraction Created",
		fmt.Sprintf("<@%d> (`%d`) has been %s by <@%d>.\n**Reason:** %s\n**ID:** %s",
			inf.TargetID, inf.TargetID, inf.Kind.ActionText(), inf.ActorID, inf.Reason, inf.ID))

	if applyErr != nil {
		return inf, fmt.Errorf("infraction %s recorded, but the remote action failed: %w", inf.ID, applyErr)
	}
	return inf, nil
}

// Pardon deactivates every active infraction of the given kind against the
// target, cancels pending reversal timers and reverts the remote effect.
// The record is deactivated before the revert, so a racing natural expiry
// collapses into harmless duplicates.
func (s *Service) Pardon(kind model.InfractionKind, targetID, actorID int64) ([]model.Infraction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown infraction kind %q", kind)
	}

	active, err := s.store.ListActiveByUser(targetID)
	if err != nil {
		return nil, err
	}

	var pardoned []model.Infraction
	for _, inf := range active {
		if inf.Kind != kind {
			continue
		}
		if err := s.store.SetActive(inf.ID, false); err != nil && !errors.Is(err, database.ErrNotFound) {
			return pardoned, err
		}
		s.scheduler.Cancel(inf.ID)
		pardoned = append(pardoned, inf)
	}
	if len(pardoned) == 0 {
		return nil, ErrNoActiveInfraction
	}

	if err := s.applier.Revert(kind, targetID, fmt.Sprintf("Pardoned by %d", actorID)); err != nil {
		return pardoned, fmt.Errorf("infraction pardoned, but the remote reversal failed: %w", err)
	}

	s.notifier.Publish("Infraction Pardoned",
		fmt.Sprintf("<@%d> (`%d`) is no longer %s, pardoned by <@%d>.",
			targetID, targetID, kind.ActionText(), actorID))

	return pardoned, nil
}

// relay notifies the target in private for kinds that warrant it. Always
// best effort: the DM may be impossible (closed DMs, target absent).
func (s *Service) relay(inf model.Infraction) {
	if !inf.Kind.Relayed() {
		return
	}
	msg := fmt.Sprintf("You have been %s.\n**Reason:** %s", inf.Kind.ActionText(), inf.Reason)
	if inf.ExpiresAt != nil {
		msg += fmt.Sprintf("\n**Expires:** %s", inf.Expiry().UTC().Format("Jan 2, 2006 at 15:04 (UTC)"))
	}
	if err := s.client.DirectMessage(inf.TargetID, msg); err != nil {
		log.Printf("Could not DM user %d about infraction %s: %v", inf.TargetID, inf.ID, err)
	}
}
