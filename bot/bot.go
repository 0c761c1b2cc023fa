package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"

	"modbot/commands"
	"modbot/guildsync"
	"modbot/model"
	"modbot/moderation"
	"modbot/platform"
	"modbot/utils"
	"modbot/utils/database/infractions"
	"modbot/utils/database/mirror"
)

// Bot owns the session, the stores and the moderation core, with explicit
// lifecycle: New, Run, Close.
type Bot struct {
	Session            *discordgo.Session
	Config             *model.Config
	DB                 *sqlx.DB
	Infractions        *infractions.Store
	Mirror             *mirror.Store
	Platform           platform.Client
	Applier            *moderation.Applier
	Scheduler          *moderation.Scheduler
	Service            *moderation.Service
	Sync               *guildsync.Engine
	Audit              *utils.AuditSink
	RegisteredCommands []*discordgo.ApplicationCommand

	CommandHandlers map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// New builds the bot and wires the moderation pipeline together.
func New(cfg *model.Config, db *sqlx.DB) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentGuildModeration
	dg.StateEnabled = false

	client := platform.NewDiscord(dg, cfg.GuildID)
	audit := utils.NewAuditSink(cfg.AuditWebhookURL)
	infractionStore := infractions.NewStore(db)
	mirrorStore := mirror.NewStore(db)

	applier := moderation.NewApplier(client, cfg.MuteRoles)
	scheduler := moderation.NewScheduler(infractionStore, applier, audit)
	service := moderation.NewService(infractionStore, applier, scheduler, client, audit)
	syncEngine := guildsync.New(client, mirrorStore, infractionStore, applier, scheduler)

	return &Bot{
		Session:     dg,
		Config:      cfg,
		DB:          db,
		Infractions: infractionStore,
		Mirror:      mirrorStore,
		Platform:    client,
		Applier:     applier,
		Scheduler:   scheduler,
		Service:     service,
		Sync:        syncEngine,
		Audit:       audit,
	}, nil
}

// RefreshCommands overwrites the guild's slash commands with the current
// set.
func (b *Bot) RefreshCommands() {
	cmds := commands.Generate()
	log.Printf("Registering %d commands for guild %s...", len(cmds), b.Config.GuildID)
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.Config.GuildID, cmds)
	if err != nil {
		log.Printf("Cannot update commands for guild %s: %v", b.Config.GuildID, err)
		return
	}
	b.RegisteredCommands = registered
}

// Close shuts the bot down: pending reversal timers are dropped (they are
// re-derived from the store on next startup) and the session is closed.
func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	b.Scheduler.Shutdown()
	if err := b.Session.Close(); err != nil {
		log.Printf("Error closing session: %v", err)
	}
	if err := b.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
