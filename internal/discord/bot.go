package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"voicetime/internal/tracker"
)

// Bot represents the Discord bot
type Bot struct {
	session *discordgo.Session
	tracker *tracker.Tracker
	prefix  string
	logger  *zap.Logger
}

// New creates a new Discord bot
func New(token, prefix string, tr *tracker.Tracker, logger *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	bot := &Bot{
		session: session,
		tracker: tr,
		prefix:  prefix,
		logger:  logger,
	}

	// Add event handlers
	session.AddHandler(bot.ready)
	session.AddHandler(bot.voiceStateUpdate)
	session.AddHandler(bot.messageCreate)
	session.AddHandler(bot.interactionCreate)

	return bot, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	if _, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", slashCommands()); err != nil {
		return fmt.Errorf("failed to register slash commands: %w", err)
	}

	b.logger.Info("bot is running",
		zap.String("user", b.session.State.User.Username),
		zap.Int("guilds", len(b.session.State.Guilds)))
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) ready(s *discordgo.Session, r *discordgo.Ready) {
	if err := s.UpdateWatchStatus(0, "Voice Activity"); err != nil {
		b.logger.Warn("failed to set bot status", zap.Error(err))
	}
	b.logger.Info("logged in", zap.String("user", r.User.Username))
}

// voiceStateUpdate translates gateway voice state updates into tracker
// events. Bot users are filtered here; they never reach the tracker.
func (b *Bot) voiceStateUpdate(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
	if vs.Member != nil && vs.Member.User != nil && vs.Member.User.Bot {
		return
	}

	event := tracker.Event{
		UserID:         vs.UserID,
		Username:       b.memberUsername(vs),
		GuildID:        vs.GuildID,
		GuildName:      b.guildName(s, vs.GuildID),
		NewChannelID:   vs.ChannelID,
		NewChannelName: b.channelName(s, vs.ChannelID),
		MicEnabled:     !vs.SelfMute,
		Deafened:       vs.SelfDeaf,
		Streaming:      vs.SelfStream,
	}
	if vs.BeforeUpdate != nil {
		event.PreviousChannelID = vs.BeforeUpdate.ChannelID
		event.PreviousChannelName = b.channelName(s, vs.BeforeUpdate.ChannelID)
	}

	// Fire-and-forget from the gateway's perspective; failures are logged
	// inside the tracker and the previous persisted state stays untouched.
	if err := b.tracker.HandleVoiceStateChange(context.Background(), event); err != nil {
		b.logger.Warn("voice state change not recorded",
			zap.String("user_id", vs.UserID),
			zap.String("guild_id", vs.GuildID))
	}
}

func (b *Bot) memberUsername(vs *discordgo.VoiceStateUpdate) string {
	if vs.Member == nil || vs.Member.User == nil {
		return vs.UserID
	}
	if vs.Member.User.GlobalName != "" {
		return vs.Member.User.GlobalName
	}
	return vs.Member.User.Username
}

func (b *Bot) channelName(s *discordgo.Session, channelID string) string {
	if channelID == "" {
		return ""
	}
	channel, err := s.State.Channel(channelID)
	if err != nil {
		return channelID
	}
	return channel.Name
}

func (b *Bot) guildName(s *discordgo.Session, guildID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return guildID
	}
	return guild.Name
}
