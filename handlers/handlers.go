package handlers

import (
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"modbot/bot"
	"modbot/model"
	"modbot/platform"
)

// Register installs the command handlers and the gateway event handlers
// that feed the sync engine.
func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	addHandlers(b)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	handlers := map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"pardon": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandlePardonCommand(s, i, b)
		},
		"infractions": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleInfractionsCommand(s, i, b)
		},
		"guild-sync": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleSyncCommand(s, i, b)
		},
		"mod-status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleStatusCommand(s, i, b)
		},
	}
	for _, kind := range model.AllKinds {
		kind := kind
		handlers[string(kind)] = func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			HandleInfractionCommand(s, i, b, kind)
		}
	}
	return handlers
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})

	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
			h(s, i)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		member, err := platform.ConvertMember(e.Member)
		if err != nil {
			log.Printf("Skipping malformed member join event: %v", err)
			return
		}
		if err := b.Sync.MemberJoined(member); err != nil {
			log.Printf("Member join sync failed for %d: %v", member.ID, err)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		userID, err := strconv.ParseInt(e.User.ID, 10, 64)
		if err != nil {
			log.Printf("Skipping malformed member leave event: %v", err)
			return
		}
		if err := b.Sync.MemberLeft(userID); err != nil {
			log.Printf("Member leave sync failed for %d: %v", userID, err)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberUpdate) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		member, err := platform.ConvertMember(e.Member)
		if err != nil {
			log.Printf("Skipping malformed member update event: %v", err)
			return
		}
		if err := b.Sync.MemberUpdated(member); err != nil {
			log.Printf("Member update sync failed for %d: %v", member.ID, err)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.UserUpdate) {
		userID, err := strconv.ParseInt(e.User.ID, 10, 64)
		if err != nil {
			log.Printf("Skipping malformed user update event: %v", err)
			return
		}
		if err := b.Sync.UserUpdated(userID, e.User.Username, e.User.Discriminator, e.User.AvatarURL("")); err != nil {
			log.Printf("User update sync failed for %d: %v", userID, err)
		}
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleCreate) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		handleRoleUpsert(b, e.Role)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleUpdate) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		handleRoleUpsert(b, e.Role)
	})

	b.Session.AddHandler(func(s *discordgo.Session, e *discordgo.GuildRoleDelete) {
		if e.GuildID != b.Config.GuildID {
			return
		}
		roleID, err := strconv.ParseInt(e.RoleID, 10, 64)
		if err != nil {
			log.Printf("Skipping malformed role delete event: %v", err)
			return
		}
		if err := b.Sync.RoleDeleted(roleID); err != nil {
			log.Printf("Role delete sync failed for %d: %v", roleID, err)
		}
	})
}

func handleRoleUpsert(b *bot.Bot, r *discordgo.Role) {
	role, err := platform.ConvertRole(r)
	if err != nil {
		log.Printf("Skipping malformed role event: %v", err)
		return
	}
	if err := b.Sync.RoleUpdated(role); err != nil {
		log.Printf("Role sync failed for %d: %v", role.ID, err)
	}
}

// isModerator reports whether the invoking member holds one of the
// configured moderator roles.
func isModerator(member *discordgo.Member, cfg *model.Config) bool {
	if member == nil {
		return false
	}
	for _, role := range member.Roles {
		for _, allowed := range cfg.ModeratorRoles {
			if role == allowed {
				return true
			}
		}
	}
	return false
}

// denyNonModerator rejects the interaction unless the caller is a
// moderator. Returns true when the caller was rejected.
func denyNonModerator(s *discordgo.Session, i *discordgo.InteractionCreate, cfg *model.Config) bool {
	if isModerator(i.Member, cfg) {
		return false
	}
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "You do not have permission to use this command.",
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	return true
}
