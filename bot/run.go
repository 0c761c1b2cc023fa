package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// startupSyncDelay gives the gateway time to settle before the first full
// sync.
const startupSyncDelay = 10 * time.Second

// Run opens the gateway connection, registers commands, kicks off the
// startup sync and blocks until SIGINT/SIGTERM.
func (b *Bot) Run() {
	if err := b.Session.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	b.RefreshCommands()

	go func() {
		time.Sleep(startupSyncDelay)
		b.StartupSync()
	}()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}

// StartupSync runs a full sync and publishes the statistics. Failures are
// logged; the next sync pass picks up whatever was missed.
func (b *Bot) StartupSync() {
	log.Println("Starting full guild sync...")
	stats, err := b.Sync.FullSync()
	if err != nil {
		log.Printf("Full sync failed: %v", err)
		return
	}
	log.Printf("Full sync done: %+v", stats)

	b.Audit.Publish("Sync Statistics", fmt.Sprintf(
		"**Roles** — updated: %d | removed: %d\n**Users** — updated: %d | absent: %d\n**Infractions** — all: %d | expired now: %d",
		stats.RolesUpdated, stats.RolesRemoved,
		stats.MembersUpdated, stats.MembersAbsent,
		stats.InfractionsTotal, stats.InfractionsExpired))
}
