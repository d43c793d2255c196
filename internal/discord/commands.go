package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"voicetime/internal/metrics"
	"voicetime/internal/models"
	"voicetime/pkg/utils"
)

const embedColor = 0x0099FF

// genericErrorMessage is all an end user ever sees of an internal failure.
const genericErrorMessage = "Something went wrong. Please try again later."

// messageCreate handles prefix commands
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(content, b.prefix))
	command := "help"
	if len(args) > 0 {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	switch command {
	case "stats":
		b.handleStatsMessage(s, m)
	case "leaderboard":
		b.handleLeaderboardMessage(s, m)
	case "setpremium":
		b.handleSetPremiumMessage(s, m, args)
	default:
		metrics.Commands.WithLabelValues("help").Inc()
		b.reply(s, m.ChannelID, "", helpEmbed(b.prefix))
	}
}

func (b *Bot) handleStatsMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	metrics.Commands.WithLabelValues("stats").Inc()

	target := m.Author
	if len(m.Mentions) > 0 {
		target = m.Mentions[0]
	}

	stats, err := b.tracker.Stats(context.Background(), target.ID, m.GuildID)
	if err != nil {
		b.logger.Error("stats command failed", zap.String("user_id", target.ID), zap.Error(err))
		b.reply(s, m.ChannelID, genericErrorMessage, nil)
		return
	}
	b.reply(s, m.ChannelID, "", statsEmbed(target, stats))
}

func (b *Bot) handleLeaderboardMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	metrics.Commands.WithLabelValues("leaderboard").Inc()

	entries, err := b.tracker.Leaderboard(context.Background(), m.GuildID, 0)
	if err != nil {
		b.logger.Error("leaderboard command failed", zap.String("guild_id", m.GuildID), zap.Error(err))
		b.reply(s, m.ChannelID, genericErrorMessage, nil)
		return
	}
	if len(entries) == 0 {
		b.reply(s, m.ChannelID, "No activity data available for this server yet.", nil)
		return
	}
	b.reply(s, m.ChannelID, "", leaderboardEmbed(b.guildName(s, m.GuildID), entries))
}

func (b *Bot) handleSetPremiumMessage(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	metrics.Commands.WithLabelValues("setpremium").Inc()

	permissions, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil || permissions&discordgo.PermissionAdministrator == 0 {
		b.reply(s, m.ChannelID, "You do not have permission to use this command.", nil)
		return
	}

	if len(args) < 2 || !utils.IsUserMention(args[0]) {
		b.reply(s, m.ChannelID, fmt.Sprintf("Usage: %s setpremium @user true/false", b.prefix), nil)
		return
	}
	userID := utils.ExtractUserIDFromMention(args[0])
	premium := strings.EqualFold(args[1], "true")

	updated, err := b.tracker.SetPremium(context.Background(), userID, premium)
	if err != nil {
		b.logger.Error("setpremium command failed", zap.String("user_id", userID), zap.Error(err))
		b.reply(s, m.ChannelID, genericErrorMessage, nil)
		return
	}
	b.reply(s, m.ChannelID, premiumResultMessage(utils.FormatUserMention(userID), premium, updated), nil)
}

func (b *Bot) reply(s *discordgo.Session, channelID, content string, embed *discordgo.MessageEmbed) {
	var err error
	if embed != nil {
		_, err = s.ChannelMessageSendEmbed(channelID, embed)
	} else {
		_, err = s.ChannelMessageSend(channelID, content)
	}
	if err != nil {
		b.logger.Warn("failed to send reply", zap.String("channel_id", channelID), zap.Error(err))
	}
}

// Slash commands

func slashCommands() []*discordgo.ApplicationCommand {
	var limitMin float64 = 1
	adminOnly := int64(discordgo.PermissionAdministrator)

	return []*discordgo.ApplicationCommand{
		{
			Name:        "stats",
			Description: "View voice activity statistics",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to check stats for",
				},
			},
		},
		{
			Name:        "leaderboard",
			Description: "View server voice activity leaderboard",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "limit",
					Description: "Number of users to show (default: 10)",
					MinValue:    &limitMin,
					MaxValue:    25,
				},
			},
		},
		{
			Name:                     "setpremium",
			Description:              "Set a user's premium status (Admin only)",
			DefaultMemberPermissions: &adminOnly,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to update premium status for",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "premium",
					Description: "Premium status (true/false)",
					Required:    true,
				},
			},
		},
	}
}

func (b *Bot) interactionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	metrics.Commands.WithLabelValues(data.Name).Inc()

	switch data.Name {
	case "stats":
		b.handleStatsInteraction(s, i, data)
	case "leaderboard":
		b.handleLeaderboardInteraction(s, i, data)
	case "setpremium":
		b.handleSetPremiumInteraction(s, i, data)
	}
}

func (b *Bot) handleStatsInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	target := i.User
	if i.Member != nil {
		target = i.Member.User
	}
	for _, option := range data.Options {
		if option.Name == "user" {
			target = option.UserValue(s)
		}
	}

	stats, err := b.tracker.Stats(context.Background(), target.ID, i.GuildID)
	if err != nil {
		b.logger.Error("stats command failed", zap.String("user_id", target.ID), zap.Error(err))
		b.respondError(s, i)
		return
	}
	b.respondEmbed(s, i, statsEmbed(target, stats))
}

func (b *Bot) handleLeaderboardInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	limit := 0
	for _, option := range data.Options {
		if option.Name == "limit" {
			limit = int(option.IntValue())
		}
	}

	entries, err := b.tracker.Leaderboard(context.Background(), i.GuildID, limit)
	if err != nil {
		b.logger.Error("leaderboard command failed", zap.String("guild_id", i.GuildID), zap.Error(err))
		b.respondError(s, i)
		return
	}
	if len(entries) == 0 {
		b.respondContent(s, i, "No activity data available for this server yet.")
		return
	}
	b.respondEmbed(s, i, leaderboardEmbed(b.guildName(s, i.GuildID), entries))
}

func (b *Bot) handleSetPremiumInteraction(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionAdministrator == 0 {
		b.respondContent(s, i, "You do not have permission to use this command.")
		return
	}

	var target *discordgo.User
	premium := false
	for _, option := range data.Options {
		switch option.Name {
		case "user":
			target = option.UserValue(s)
		case "premium":
			premium = option.BoolValue()
		}
	}
	if target == nil {
		b.respondError(s, i)
		return
	}

	updated, err := b.tracker.SetPremium(context.Background(), target.ID, premium)
	if err != nil {
		b.logger.Error("setpremium command failed", zap.String("user_id", target.ID), zap.Error(err))
		b.respondError(s, i)
		return
	}
	b.respondContent(s, i, premiumResultMessage(displayName(target), premium, updated))
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		b.logger.Warn("failed to respond to interaction", zap.Error(err))
	}
}

func (b *Bot) respondContent(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		b.logger.Warn("failed to respond to interaction", zap.Error(err))
	}
}

func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: genericErrorMessage,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Warn("failed to respond to interaction", zap.Error(err))
	}
}

// Embeds

func statsEmbed(user *discordgo.User, stats models.Stats) *discordgo.MessageEmbed {
	lastUpdated := "N/A"
	if !stats.LastUpdated.IsZero() {
		lastUpdated = stats.LastUpdated.Format("2006-01-02 15:04 MST")
	}

	premiumValue := "Free"
	if stats.IsPremium {
		premiumValue = "Premium ⭐"
	}

	return &discordgo.MessageEmbed{
		Color:     embedColor,
		Title:     fmt.Sprintf("Voice Activity Stats for %s", displayName(user)),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Total Time in Voice", Value: utils.FormatMinutes(stats.TotalTimeInVoice), Inline: true},
			{Name: "Sessions Count", Value: fmt.Sprintf("%d", stats.SessionsCount), Inline: true},
			{Name: "Premium Status", Value: premiumValue, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Last Updated: " + lastUpdated},
	}
}

func leaderboardEmbed(guildName string, entries []models.LeaderboardEntry) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       fmt.Sprintf("Voice Activity Leaderboard for %s", guildName),
		Description: "Users with the most voice channel activity:",
	}
	for rank, entry := range entries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  utils.FormatLeaderboardEntry(rank+1, entry.Username, entry.IsPremium),
			Value: utils.FormatMinutes(entry.TotalTimeInVoice) + " in voice channels",
		})
	}
	return embed
}

func helpEmbed(prefix string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       embedColor,
		Title:       "Voice Activity Tracker - Help",
		Description: "Available commands:",
		Fields: []*discordgo.MessageEmbedField{
			{Name: prefix + " stats [@user]", Value: "View your or mentioned user's voice activity stats"},
			{Name: prefix + " leaderboard", Value: "View server voice activity leaderboard"},
			{Name: prefix + " setpremium @user true/false", Value: "Set user premium status (Admin only)"},
			{Name: prefix + " help", Value: "Show this help message"},
		},
	}
}

func premiumResultMessage(who string, premium, updated bool) string {
	status := "Free"
	if premium {
		status = "Premium ⭐"
	}
	if !updated {
		return fmt.Sprintf("No records changed for %s.", who)
	}
	return fmt.Sprintf("%s's premium status has been set to: %s", who, status)
}

func displayName(user *discordgo.User) string {
	if user.GlobalName != "" {
		return user.GlobalName
	}
	return user.Username
}
