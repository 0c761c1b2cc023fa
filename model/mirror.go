package model

// MemberRecord is the locally persisted copy of a guild member. Records are
// kept after the member leaves (Present=false) so repeat offenders retain
// their history.
type MemberRecord struct {
	ID            int64  `db:"id"`
	Username      string `db:"username"`
	Discriminator string `db:"discriminator"`
	AvatarURL     string `db:"avatar_url"`
	Present       bool   `db:"present"`
}

// RoleRecord is the locally persisted copy of a guild role.
type RoleRecord struct {
	ID     int64  `db:"id"`
	Name   string `db:"name"`
	Colour int    `db:"colour"`
}

// MemberRole is a row in the member/role junction table.
type MemberRole struct {
	MemberID int64 `db:"member_id"`
	RoleID   int64 `db:"role_id"`
}
