package platform

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

const memberPageSize = 1000

// Discord implements Client over a discordgo session, scoped to a single
// guild.
type Discord struct {
	session *discordgo.Session
	guildID string
}

// NewDiscord wraps a discordgo session as a platform client for guildID.
func NewDiscord(session *discordgo.Session, guildID string) *Discord {
	return &Discord{session: session, guildID: guildID}
}

func (d *Discord) GetMember(userID int64) (*Member, error) {
	m, err := d.session.GuildMember(d.guildID, snowflake(userID))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch member %d: %w", userID, err)
	}
	member, err := ConvertMember(m)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (d *Discord) AddRole(userID, roleID int64) error {
	if err := d.session.GuildMemberRoleAdd(d.guildID, snowflake(userID), snowflake(roleID)); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add role %d to user %d: %w", roleID, userID, err)
	}
	return nil
}

func (d *Discord) RemoveRole(userID, roleID int64) error {
	if err := d.session.GuildMemberRoleRemove(d.guildID, snowflake(userID), snowflake(roleID)); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove role %d from user %d: %w", roleID, userID, err)
	}
	return nil
}

func (d *Discord) Ban(userID int64, reason string) error {
	if err := d.session.GuildBanCreateWithReason(d.guildID, snowflake(userID), reason, 0); err != nil {
		return fmt.Errorf("failed to ban user %d: %w", userID, err)
	}
	return nil
}

func (d *Discord) Unban(userID int64) error {
	if err := d.session.GuildBanDelete(d.guildID, snowflake(userID)); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to unban user %d: %w", userID, err)
	}
	return nil
}

func (d *Discord) Kick(userID int64, reason string) error {
	if err := d.session.GuildMemberDeleteWithReason(d.guildID, snowflake(userID), reason); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to kick user %d: %w", userID, err)
	}
	return nil
}

func (d *Discord) ListMembers() ([]Member, error) {
	var members []Member
	after := ""
	for {
		page, err := d.session.GuildMembers(d.guildID, after, memberPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", err)
		}
		for _, m := range page {
			member, err := ConvertMember(m)
			if err != nil {
				return nil, err
			}
			members = append(members, member)
		}
		if len(page) < memberPageSize {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (d *Discord) ListRoles() ([]Role, error) {
	guildRoles, err := d.session.GuildRoles(d.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild roles: %w", err)
	}
	roles := make([]Role, 0, len(guildRoles))
	for _, r := range guildRoles {
		role, err := ConvertRole(r)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (d *Discord) DirectMessage(userID int64, content string) error {
	channel, err := d.session.UserChannelCreate(snowflake(userID))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with user %d: %w", userID, err)
	}
	if _, err := d.session.ChannelMessageSend(channel.ID, content); err != nil {
		return fmt.Errorf("failed to DM user %d: %w", userID, err)
	}
	return nil
}

// ConvertMember translates a discordgo member into the platform type.
func ConvertMember(m *discordgo.Member) (Member, error) {
	id, err := strconv.ParseInt(m.User.ID, 10, 64)
	if err != nil {
		return Member{}, fmt.Errorf("malformed user ID %q: %w", m.User.ID, err)
	}
	roles := make([]int64, 0, len(m.Roles))
	for _, r := range m.Roles {
		roleID, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return Member{}, fmt.Errorf("malformed role ID %q on user %s: %w", r, m.User.ID, err)
		}
		roles = append(roles, roleID)
	}
	return Member{
		ID:            id,
		Username:      m.User.Username,
		Discriminator: m.User.Discriminator,
		AvatarURL:     m.User.AvatarURL(""),
		Roles:         roles,
	}, nil
}

// ConvertRole translates a discordgo role into the platform type.
func ConvertRole(r *discordgo.Role) (Role, error) {
	id, err := strconv.ParseInt(r.ID, 10, 64)
	if err != nil {
		return Role{}, fmt.Errorf("malformed role ID %q: %w", r.ID, err)
	}
	return Role{ID: id, Name: r.Name, Colour: r.Color}, nil
}

func snowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
