// Package platform abstracts the remote chat platform behind a small
// client interface so the moderation core and the sync engine never talk
// to the network directly.
package platform

import "errors"

// ErrNotFound is returned when the remote platform reports that the
// requested entity (member, ban, role) does not exist. Callers generally
// treat it as a recoverable no-op rather than a failure.
var ErrNotFound = errors.New("platform: not found")

// Member is a guild member as observed on the remote platform.
type Member struct {
	ID            int64
	Username      string
	Discriminator string
	AvatarURL     string
	Roles         []int64
}

// Role is a guild role as observed on the remote platform.
type Role struct {
	ID     int64
	Name   string
	Colour int
}

// Client is the set of remote-platform operations the moderation core
// needs. All calls may block on the network; implementations wrap a single
// guild.
type Client interface {
	// GetMember fetches a guild member. Returns ErrNotFound if the user
	// is not currently a member.
	GetMember(userID int64) (*Member, error)

	AddRole(userID, roleID int64) error
	RemoveRole(userID, roleID int64) error

	Ban(userID int64, reason string) error
	// Unban returns ErrNotFound if the user is not banned.
	Unban(userID int64) error
	Kick(userID int64, reason string) error

	// ListMembers fetches the complete guild member set.
	ListMembers() ([]Member, error)
	// ListRoles fetches the complete guild role set.
	ListRoles() ([]Role, error)

	// DirectMessage sends a private message to a user, best effort.
	DirectMessage(userID int64, content string) error
}
