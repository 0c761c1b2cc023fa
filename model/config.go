package model

// Config is the full bot configuration, loaded from config.yaml with
// environment overrides for secrets.
type Config struct {
	BotToken        string       `mapstructure:"bot_token"`
	GuildID         string       `mapstructure:"guild_id"`
	DatabasePath    string       `mapstructure:"database_path"`
	AuditWebhookURL string       `mapstructure:"audit_webhook_url"`
	ModeratorRoles  []string     `mapstructure:"moderator_roles"`
	MuteRoles       MuteRoles    `mapstructure:"mute_roles"`
	Logger          LoggerConfig `mapstructure:"logger"`
}

// MuteRoles maps each mute kind to the guild role that enforces it.
type MuteRoles struct {
	Muted       int64 `mapstructure:"muted"`
	NoMeta      int64 `mapstructure:"no_meta"`
	NoReactions int64 `mapstructure:"no_reactions"`
	NoRequests  int64 `mapstructure:"no_requests"`
	NoSupport   int64 `mapstructure:"no_support"`
}

// ForKind returns the role ID enforcing the given mute kind, or 0 for
// kinds that are not role-backed.
func (m MuteRoles) ForKind(kind InfractionKind) int64 {
	switch kind {
	case KindMute:
		return m.Muted
	case KindMetaMute:
		return m.NoMeta
	case KindReactionMute:
		return m.NoReactions
	case KindRequestsMute:
		return m.NoRequests
	case KindSupportMute:
		return m.NoSupport
	}
	return 0
}

// LoggerConfig controls log file rotation.
type LoggerConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}
