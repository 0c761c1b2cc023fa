// Package guildsync reconciles the locally mirrored member/role state and
// the active infraction set against the live guild. A full sync runs on
// startup and on demand; incremental syncs run per gateway event.
package guildsync

import (
	"fmt"
	"log"
	"time"

	"modbot/model"
	"modbot/moderation"
	"modbot/platform"
)

// MirrorStore is the slice of the mirror tables the engine writes to.
type MirrorStore interface {
	GetMember(id int64) (model.MemberRecord, error)
	UpsertMember(rec model.MemberRecord) (bool, error)
	SetPresent(id int64, present bool) (bool, error)
	ListPresentMemberIDs() ([]int64, error)
	UpsertRole(rec model.RoleRecord) (bool, error)
	DeleteRole(id int64) error
	ListRoleIDs() ([]int64, error)
	ReplaceMemberRoles(memberID int64, roleIDs []int64) (bool, error)
}

// InfractionSource is the read-only view of the infraction store the
// engine reconciles against.
type InfractionSource interface {
	ListActiveByUser(targetID int64) ([]model.Infraction, error)
	ListActiveExpirable() ([]model.Infraction, error)
	Count() (int64, error)
}

// Stats summarizes the mutations a full sync performed. A repeat run with
// no remote changes in between reports all zeros.
type Stats struct {
	RolesUpdated       int
	RolesRemoved       int
	MembersUpdated     int
	MembersAbsent      int
	InfractionsTotal   int64
	InfractionsExpired int
}

// Engine keeps the mirror and the infraction timers in line with the
// remote guild.
type Engine struct {
	client      platform.Client
	mirror      MirrorStore
	infractions InfractionSource
	applier     *moderation.Applier
	scheduler   *moderation.Scheduler
}

// New creates a sync engine.
func New(client platform.Client, mirror MirrorStore, infractions InfractionSource, applier *moderation.Applier, scheduler *moderation.Scheduler) *Engine {
	return &Engine{
		client:      client,
		mirror:      mirror,
		infractions: infractions,
		applier:     applier,
		scheduler:   scheduler,
	}
}

// FullSync reconciles roles, members and active infractions against the
// complete remote state and returns mutation statistics.
func (e *Engine) FullSync() (Stats, error) {
	var stats Stats

	members, err := e.client.ListMembers()
	if err != nil {
		return stats, fmt.Errorf("full sync: %w", err)
	}
	present := make(map[int64]bool, len(members))
	for _, m := range members {
		present[m.ID] = true
	}

	if err := e.syncRoles(&stats); err != nil {
		return stats, err
	}
	if err := e.syncMembers(members, present, &stats); err != nil {
		return stats, err
	}
	if err := e.syncInfractions(present, &stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (e *Engine) syncRoles(stats *Stats) error {
	roles, err := e.client.ListRoles()
	if err != nil {
		return fmt.Errorf("role sync: %w", err)
	}

	remote := make(map[int64]bool, len(roles))
	for _, r := range roles {
		remote[r.ID] = true
		changed, err := e.mirror.UpsertRole(model.RoleRecord{ID: r.ID, Name: r.Name, Colour: r.Colour})
		if err != nil {
			return fmt.Errorf("role sync: %w", err)
		}
		if changed {
			stats.RolesUpdated++
		}
	}

	local, err := e.mirror.ListRoleIDs()
	if err != nil {
		return fmt.Errorf("role sync: %w", err)
	}
	for _, id := range local {
		if !remote[id] {
			if err := e.mirror.DeleteRole(id); err != nil {
				return fmt.Errorf("role sync: %w", err)
			}
			stats.RolesRemoved++
		}
	}
	return nil
}

func (e *Engine) syncMembers(members []platform.Member, present map[int64]bool, stats *Stats) error {
	for _, m := range members {
		changed, err := e.writeMember(m, true)
		if err != nil {
			return fmt.Errorf("member sync: %w", err)
		}
		if changed {
			stats.MembersUpdated++
		}
	}

	local, err := e.mirror.ListPresentMemberIDs()
	if err != nil {
		return fmt.Errorf("member sync: %w", err)
	}
	for _, id := range local {
		if !present[id] {
			changed, err := e.mirror.SetPresent(id, false)
			if err != nil {
				return fmt.Errorf("member sync: %w", err)
			}
			if changed {
				stats.MembersAbsent++
			}
		}
	}
	return nil
}

// syncInfractions re-derives reversal timers for every active temporary
// infraction. Expired records fire immediately; future ones are scheduled
// and, when the target is still in the guild, have their effect re-applied
// to cover drift that happened while the process was down.
func (e *Engine) syncInfractions(present map[int64]bool, stats *Stats) error {
	records, err := e.infractions.ListActiveExpirable()
	if err != nil {
		return fmt.Errorf("infraction sync: %w", err)
	}
	total, err := e.infractions.Count()
	if err != nil {
		return fmt.Errorf("infraction sync: %w", err)
	}
	stats.InfractionsTotal = total

	now := time.Now()
	for _, inf := range records {
		if inf.Expired(now) {
			stats.InfractionsExpired++
		} else if present[inf.TargetID] {
			if err := e.applier.Apply(inf.Kind, inf.TargetID, "Infraction: "+inf.ID); err != nil {
				log.Printf("Could not re-apply infraction %s: %v", inf.ID, err)
			}
		}
		e.scheduler.ScheduleReversal(inf, inf.Expiry())
	}
	return nil
}

// MemberJoined mirrors a freshly joined member and re-applies any active
// role-backed infractions, so leaving and rejoining does not shed a mute.
func (e *Engine) MemberJoined(m platform.Member) error {
	if _, err := e.writeMember(m, true); err != nil {
		return err
	}

	active, err := e.infractions.ListActiveByUser(m.ID)
	if err != nil {
		return err
	}
	for _, inf := range active {
		if !inf.Kind.RoleBacked() {
			continue
		}
		// Expiry is already scheduled; only the role grant is re-driven.
		if err := e.applier.Apply(inf.Kind, inf.TargetID, "Infraction: "+inf.ID); err != nil {
			log.Printf("Could not re-apply infraction %s on rejoin: %v", inf.ID, err)
		}
	}
	return nil
}

// MemberLeft marks the member absent. The record itself is kept.
func (e *Engine) MemberLeft(userID int64) error {
	_, err := e.mirror.SetPresent(userID, false)
	return err
}

// MemberUpdated overwrites the mirrored member with the fresh snapshot.
func (e *Engine) MemberUpdated(m platform.Member) error {
	_, err := e.writeMember(m, true)
	return err
}

// UserUpdated refreshes the identity fields of an already mirrored user.
// Unknown users are ignored; they will be picked up when they join.
func (e *Engine) UserUpdated(userID int64, username, discriminator, avatarURL string) error {
	rec, err := e.mirror.GetMember(userID)
	if err != nil {
		return nil
	}
	rec.Username = username
	rec.Discriminator = discriminator
	rec.AvatarURL = avatarURL
	_, err = e.mirror.UpsertMember(rec)
	return err
}

// RoleUpdated mirrors a created or updated role.
func (e *Engine) RoleUpdated(r platform.Role) error {
	_, err := e.mirror.UpsertRole(model.RoleRecord{ID: r.ID, Name: r.Name, Colour: r.Colour})
	return err
}

// RoleDeleted removes a role and its junction rows from the mirror.
func (e *Engine) RoleDeleted(roleID int64) error {
	return e.mirror.DeleteRole(roleID)
}

func (e *Engine) writeMember(m platform.Member, present bool) (bool, error) {
	changedRec, err := e.mirror.UpsertMember(model.MemberRecord{
		ID:            m.ID,
		Username:      m.Username,
		Discriminator: m.Discriminator,
		AvatarURL:     m.AvatarURL,
		Present:       present,
	})
	if err != nil {
		return false, err
	}
	changedRoles, err := e.mirror.ReplaceMemberRoles(m.ID, m.Roles)
	if err != nil {
		return false, err
	}
	return changedRec || changedRoles, nil
}
