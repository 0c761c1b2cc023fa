package utils

import (
	"log"

	"github.com/bwmarrin/discordgo"
)

// DeferResponse acknowledges an interaction so the handler has time to do
// real work before following up.
func DeferResponse(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
}

// FollowUp sends a plain follow-up message to a deferred interaction.
func FollowUp(s *discordgo.Session, i *discordgo.Interaction, content string) {
	if _, err := s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{Content: content}); err != nil {
		log.Printf("Failed to send follow-up: %v", err)
	}
}

// FollowUpEmbed sends an embed follow-up to a deferred interaction.
func FollowUpEmbed(s *discordgo.Session, i *discordgo.Interaction, embed *discordgo.MessageEmbed) {
	if _, err := s.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		log.Printf("Failed to send follow-up embed: %v", err)
	}
}
