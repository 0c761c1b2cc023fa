package handlers

import (
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"modbot/bot"
	"modbot/utils"
)

// HandleStatusCommand services /mod-status: host statistics plus the size
// of the infraction ledger and the number of pending reversal timers.
func HandleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if denyNonModerator(s, i, b.Config) {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	cpuUsage := 0.0
	if len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}
	uptime := "unknown"
	if hostInfo != nil {
		uptime = (time.Duration(hostInfo.Uptime) * time.Second).String()
	}
	memUsage := "unknown"
	if vm != nil {
		memUsage = fmt.Sprintf("%.1f%% of %d MB", vm.UsedPercent, vm.Total/1024/1024)
	}

	count, err := b.Infractions.Count()
	if err != nil {
		log.Printf("Failed to count infractions: %v", err)
	}

	utils.FollowUpEmbed(s, i.Interaction, &discordgo.MessageEmbed{
		Title: "Bot Status",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Host", Value: fmt.Sprintf("%s/%s | uptime %s", runtime.GOOS, runtime.GOARCH, uptime), Inline: false},
			{Name: "CPU", Value: fmt.Sprintf("%d cores | %.1f%%", cpuCount, cpuUsage), Inline: true},
			{Name: "Memory", Value: memUsage, Inline: true},
			{Name: "Infractions", Value: fmt.Sprintf("%d recorded | %d pending reversals", count, b.Scheduler.Pending()), Inline: false},
		},
	})
}
