package handlers

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"modbot/bot"
	"modbot/model"
	"modbot/moderation"
	"modbot/utils"
)

const embedGreen = 0x2ECC71

// HandleInfractionCommand services the per-kind infraction commands
// (/ban, /mute, /warn, ...).
func HandleInfractionCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot, kind model.InfractionKind) {
	if denyNonModerator(s, i, b.Config) {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	opts := optionMap(i)

	targetID, err := userOption(opts, "user")
	if err != nil {
		utils.FollowUp(s, i.Interaction, "Could not read the target user.")
		return
	}
	actorID, err := strconv.ParseInt(i.Member.User.ID, 10, 64)
	if err != nil {
		utils.FollowUp(s, i.Interaction, "Could not read your user ID.")
		return
	}

	req := moderation.CreateRequest{
		Kind:     kind,
		TargetID: targetID,
		ActorID:  actorID,
		Reason:   stringOption(opts, "reason"),
	}

	if raw := stringOption(opts, "duration"); raw != "" {
		duration, err := utils.ParseDuration(raw)
		if err != nil {
			utils.FollowUp(s, i.Interaction, fmt.Sprintf("Could not parse duration %q. Use forms like 30m, 2h or 7d.", raw))
			return
		}
		req.Duration = &duration
	}

	inf, err := b.Service.Create(req)
	if err != nil {
		utils.FollowUp(s, i.Interaction, createErrorMessage(err))
		return
	}

	expires := "never"
	if inf.ExpiresAt != nil {
		expires = inf.Expiry().UTC().Format("Jan 2, 2006 at 15:04 (UTC)")
	}
	utils.FollowUpEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title: "Infraction Recorded",
		Color: embedGreen,
		Description: fmt.Sprintf("<@%d> has been %s.\n**Reason:** %s\n**Expires:** %s",
			inf.TargetID, kind.ActionText(), inf.Reason, expires),
		Footer: &discordgo.MessageEmbedFooter{Text: "ID: " + inf.ID},
	})
}

func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, moderation.ErrInvalidDuration),
		errors.Is(err, moderation.ErrNotExpirable),
		errors.Is(err, moderation.ErrTargetAbsent):
		return err.Error()
	default:
		return "The infraction could not be fully applied: " + err.Error()
	}
}

// HandlePardonCommand services /pardon.
func HandlePardonCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if denyNonModerator(s, i, b.Config) {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	opts := optionMap(i)
	kind := model.InfractionKind(stringOption(opts, "kind"))
	targetID, err := userOption(opts, "user")
	if err != nil {
		utils.FollowUp(s, i.Interaction, "Could not read the target user.")
		return
	}
	actorID, _ := strconv.ParseInt(i.Member.User.ID, 10, 64)

	pardoned, err := b.Service.Pardon(kind, targetID, actorID)
	if err != nil {
		if errors.Is(err, moderation.ErrNoActiveInfraction) {
			utils.FollowUp(s, i.Interaction, err.Error())
			return
		}
		utils.FollowUp(s, i.Interaction, "Pardon failed: "+err.Error())
		return
	}

	ids := make([]string, 0, len(pardoned))
	for _, inf := range pardoned {
		ids = append(ids, inf.ID)
	}
	utils.FollowUp(s, i.Interaction, fmt.Sprintf("<@%d> is no longer %s. Cleared: %s",
		targetID, kind.ActionText(), strings.Join(ids, ", ")))
}

// HandleInfractionsCommand services /infractions, the history lookup.
func HandleInfractionsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if denyNonModerator(s, i, b.Config) {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	opts := optionMap(i)
	targetID, err := userOption(opts, "user")
	if err != nil {
		utils.FollowUp(s, i.Interaction, "Could not read the target user.")
		return
	}

	records, err := b.Infractions.ListByUser(targetID)
	if err != nil {
		log.Printf("Infraction lookup failed for %d: %v", targetID, err)
		utils.FollowUp(s, i.Interaction, "Could not load the infraction history.")
		return
	}
	if len(records) == 0 {
		utils.FollowUp(s, i.Interaction, fmt.Sprintf("<@%d> has no infractions on record.", targetID))
		return
	}

	const maxShown = 10
	var sb strings.Builder
	for idx, inf := range records {
		if idx == maxShown {
			fmt.Fprintf(&sb, "… and %d more.\n", len(records)-maxShown)
			break
		}
		state := "inactive"
		if inf.Active {
			state = "active"
		}
		fmt.Fprintf(&sb, "`%s` **%s** (%s) — %s\n", inf.ID, inf.Kind, state, inf.Reason)
	}
	utils.FollowUpEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Infractions for %d (%d total)", targetID, len(records)),
		Description: sb.String(),
	})
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func userOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int64, error) {
	opt, ok := opts[name]
	if !ok {
		return 0, fmt.Errorf("missing option %q", name)
	}
	return strconv.ParseInt(opt.UserValue(nil).ID, 10, 64)
}

// HandleSyncCommand services /guild-sync, the manual full reconciliation.
func HandleSyncCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if denyNonModerator(s, i, b.Config) {
		return
	}
	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	stats, err := b.Sync.FullSync()
	if err != nil {
		log.Printf("Manual sync failed: %v", err)
		utils.FollowUp(s, i.Interaction, "Sync failed: "+err.Error())
		return
	}

	utils.FollowUpEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title: "Sync Statistics",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Roles", Value: fmt.Sprintf("**Updated:** %d | **Removed:** %d", stats.RolesUpdated, stats.RolesRemoved)},
			{Name: "Users", Value: fmt.Sprintf("**Updated:** %d | **Absent:** %d", stats.MembersUpdated, stats.MembersAbsent)},
			{Name: "Infractions", Value: fmt.Sprintf("**All:** %d | **Expired now:** %d", stats.InfractionsTotal, stats.InfractionsExpired)},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
