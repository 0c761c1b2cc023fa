// Package moderation implements the infraction lifecycle: applying and
// reverting platform-side effects, scheduling reversals for temporary
// infractions, and the create/pardon pipeline driven by commands.
package moderation

import (
	"errors"
	"fmt"
	"log"

	"modbot/model"
	"modbot/platform"
)

// actionPair holds the remote side effect for an infraction kind and its
// inverse. A nil func means the kind has no effect in that direction.
type actionPair struct {
	apply  func(a *Applier, targetID int64, reason string) error
	revert func(a *Applier, targetID int64, reason string) error
}

// Applier maps infraction kinds to remote-platform effects. Every apply
// and revert is idempotent: repeating a call with the same target and kind
// neither errors nor double-applies.
type Applier struct {
	client  platform.Client
	roles   model.MuteRoles
	actions map[model.InfractionKind]actionPair
}

// NewApplier creates an Applier using the given platform client and the
// configured mute role IDs.
func NewApplier(client platform.Client, roles model.MuteRoles) *Applier {
	a := &Applier{client: client, roles: roles}
	a.actions = map[model.InfractionKind]actionPair{
		model.KindBan:  {apply: (*Applier).applyBan, revert: (*Applier).revertBan},
		model.KindKick: {apply: (*Applier).applyKick},
		model.KindWarn: {},
		model.KindNote: {},
	}
	for _, kind := range []model.InfractionKind{
		model.KindMute, model.KindMetaMute, model.KindReactionMute,
		model.KindRequestsMute, model.KindSupportMute,
	} {
		a.actions[kind] = roleActions(kind)
	}
	return a
}

// Apply performs the remote side effect for the given kind.
func (a *Applier) Apply(kind model.InfractionKind, targetID int64, reason string) error {
	pair, ok := a.actions[kind]
	if !ok {
		return fmt.Errorf("unknown infraction kind %q", kind)
	}
	if pair.apply == nil {
		return nil
	}
	return pair.apply(a, targetID, reason)
}

// Revert undoes the remote side effect for the given kind.
func (a *Applier) Revert(kind model.InfractionKind, targetID int64, reason string) error {
	pair, ok := a.actions[kind]
	if !ok {
		return fmt.Errorf("unknown infraction kind %q", kind)
	}
	if pair.revert == nil {
		return nil
	}
	return pair.revert(a, targetID, reason)
}

func (a *Applier) applyBan(targetID int64, reason string) error {
	// Bans operate by ID, so the target does not need to be a member.
	return a.client.Ban(targetID, reason)
}

func (a *Applier) revertBan(targetID int64, _ string) error {
	err := a.client.Unban(targetID)
	if errors.Is(err, platform.ErrNotFound) {
		// Already unbanned.
		return nil
	}
	return err
}

func (a *Applier) applyKick(targetID int64, reason string) error {
	err := a.client.Kick(targetID, reason)
	if errors.Is(err, platform.ErrNotFound) {
		// Already gone.
		return nil
	}
	return err
}

// roleActions builds the apply/revert pair for a role-backed mute kind.
// If the target is not a guild member the effect is treated as a
// successful no-op: the sync engine re-applies it should they return.
func roleActions(kind model.InfractionKind) actionPair {
	return actionPair{
		apply: func(a *Applier, targetID int64, _ string) error {
			return a.setRole(kind, targetID, a.client.AddRole)
		},
		revert: func(a *Applier, targetID int64, _ string) error {
			return a.setRole(kind, targetID, a.client.RemoveRole)
		},
	}
}

func (a *Applier) setRole(kind model.InfractionKind, targetID int64, op func(userID, roleID int64) error) error {
	roleID := a.roles.ForKind(kind)
	if roleID == 0 {
		return fmt.Errorf("no role configured for %s", kind)
	}

	if _, err := a.client.GetMember(targetID); err != nil {
		if errors.Is(err, platform.ErrNotFound) {
			log.Printf("User %d is not in the guild; %s role change deferred to sync", targetID, kind)
			return nil
		}
		return err
	}

	err := op(targetID, roleID)
	if errors.Is(err, platform.ErrNotFound) {
		// The member left between the lookup and the role change.
		log.Printf("User %d left mid-change; %s role change deferred to sync", targetID, kind)
		return nil
	}
	return err
}
