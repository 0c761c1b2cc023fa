// Package commands declares the guild slash commands. The per-kind
// infraction commands are generated from the kind table so a new kind only
// needs a model entry.
package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"modbot/model"
)

// Generate returns the full application command set for the guild.
func Generate() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(model.AllKinds)+4)

	for _, kind := range model.AllKinds {
		options := []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to act on.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Why this action is being taken.",
				Required:    true,
			},
		}
		if kind.Expirable() {
			options = append(options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "duration",
				Description: "How long the action lasts, e.g. 30m, 2h, 7d. Omit for permanent.",
			})
		}
		cmds = append(cmds, &discordgo.ApplicationCommand{
			Name:        string(kind),
			Description: fmt.Sprintf("Record that a user is %s and apply the action.", kind.ActionText()),
			Options:     options,
		})
	}

	pardonChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0)
	for _, kind := range model.AllKinds {
		if !kind.Expirable() {
			continue
		}
		pardonChoices = append(pardonChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  string(kind),
			Value: string(kind),
		})
	}

	cmds = append(cmds,
		&discordgo.ApplicationCommand{
			Name:        "pardon",
			Description: "Lift a user's active infraction of a given kind.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "kind",
					Description: "The infraction kind to pardon.",
					Required:    true,
					Choices:     pardonChoices,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to pardon.",
					Required:    true,
				},
			},
		},
		&discordgo.ApplicationCommand{
			Name:        "infractions",
			Description: "Show a user's infraction history.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to look up.",
					Required:    true,
				},
			},
		},
		&discordgo.ApplicationCommand{
			Name:        "guild-sync",
			Description: "Run a full reconciliation against the guild and report statistics.",
		},
		&discordgo.ApplicationCommand{
			Name:        "mod-status",
			Description: "Show bot host statistics and infraction counts.",
		},
	)
	return cmds
}
