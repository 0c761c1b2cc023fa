package model

import "time"

// InfractionKind identifies the type of moderation action taken against a user.
type InfractionKind string

const (
	KindBan          InfractionKind = "ban"
	KindKick         InfractionKind = "kick"
	KindMute         InfractionKind = "mute"
	KindMetaMute     InfractionKind = "meta-mute"
	KindReactionMute InfractionKind = "reaction-mute"
	KindRequestsMute InfractionKind = "requests-mute"
	KindSupportMute  InfractionKind = "support-mute"
	KindWarn         InfractionKind = "warn"
	KindNote         InfractionKind = "note"
)

// kindTraits describes how a kind behaves: whether it can expire and be
// reversed, whether the target is notified in private, and whether the
// target must be a guild member for the action to make sense at all.
type kindTraits struct {
	actionText       string
	expirable        bool
	relayed          bool
	requiresPresence bool
	roleBacked       bool
}

var kinds = map[InfractionKind]kindTraits{
	KindBan:          {actionText: "banned", expirable: true, relayed: true},
	KindKick:         {actionText: "kicked", relayed: true, requiresPresence: true},
	KindMute:         {actionText: "muted", expirable: true, relayed: true, roleBacked: true},
	KindMetaMute:     {actionText: "meta-muted", expirable: true, relayed: true, roleBacked: true},
	KindReactionMute: {actionText: "reaction-muted", expirable: true, relayed: true, roleBacked: true},
	KindRequestsMute: {actionText: "requests-muted", expirable: true, relayed: true, roleBacked: true},
	KindSupportMute:  {actionText: "support-muted", expirable: true, relayed: true, roleBacked: true},
	KindWarn:         {actionText: "warned", relayed: true},
	KindNote:         {actionText: "noted"},
}

// AllKinds lists every infraction kind in command-registration order.
var AllKinds = []InfractionKind{
	KindBan, KindKick, KindMute, KindMetaMute, KindReactionMute,
	KindRequestsMute, KindSupportMute, KindWarn, KindNote,
}

// Valid reports whether k is a known infraction kind.
func (k InfractionKind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Expirable reports whether infractions of this kind may carry an expiry
// and therefore a reversal action.
func (k InfractionKind) Expirable() bool { return kinds[k].expirable }

// Relayed reports whether the target should be notified in private.
func (k InfractionKind) Relayed() bool { return kinds[k].relayed }

// RequiresPresence reports whether the target must be a guild member.
func (k InfractionKind) RequiresPresence() bool { return kinds[k].requiresPresence }

// RoleBacked reports whether the kind's effect is a guild role grant.
func (k InfractionKind) RoleBacked() bool { return kinds[k].roleBacked }

// ActionText returns the past-tense verb used in user-facing messages,
// e.g. "banned" or "reaction-muted".
func (k InfractionKind) ActionText() string { return kinds[k].actionText }

// Infraction is a single moderation action record. Rows are append-only:
// records are never deleted, only deactivated.
type Infraction struct {
	ID        string         `db:"id"` // UUID
	TargetID  int64          `db:"target_id"`
	ActorID   int64          `db:"actor_id"`
	Kind      InfractionKind `db:"kind"`
	Reason    string         `db:"reason"`
	CreatedAt int64          `db:"created_at"` // unix seconds
	ExpiresAt *int64         `db:"expires_at"` // unix seconds, nil = permanent
	Active    bool           `db:"active"`
}

// Expiry returns the expiry as a time.Time, or the zero time for
// permanent infractions.
func (i *Infraction) Expiry() time.Time {
	if i.ExpiresAt == nil {
		return time.Time{}
	}
	return time.Unix(*i.ExpiresAt, 0)
}

// Expired reports whether the infraction has an expiry in the past.
func (i *Infraction) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(time.Unix(*i.ExpiresAt, 0))
}
