package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const embedBlurple = 7506394

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Timestamp   string              `json:"timestamp"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// AuditSink publishes moderation events to a Discord webhook. Delivery is
// fire-and-forget: failures are logged and swallowed so the infraction
// pipeline never blocks on the audit channel.
type AuditSink struct {
	webhookURL string
	client     *http.Client
}

// NewAuditSink creates a sink for the given webhook URL. An empty URL
// disables delivery.
func NewAuditSink(webhookURL string) *AuditSink {
	return &AuditSink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Publish sends the event in the background.
func (a *AuditSink) Publish(title, description string) {
	if a.webhookURL == "" {
		return
	}
	go func() {
		if err := a.send(title, description); err != nil {
			log.Printf("Failed to deliver audit event %q: %v", title, err)
		}
	}()
}

func (a *AuditSink) send(title, description string) error {
	payload := discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       title,
			Description: description,
			Color:       embedBlurple,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := a.client.Post(a.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned %s: %s", resp.Status, string(respBody))
	}
	return nil
}
