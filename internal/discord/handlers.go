package discord

import (
	"runtime/debug"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/action"
	"github.com/keshon/voice-relay/internal/command"
	"github.com/keshon/voice-relay/internal/config"
	"github.com/keshon/voice-relay/pkg/cmd"
)

// recoverHandler keeps a panicking handler from taking the gateway down.
func (b *Bot) recoverHandler(event, guildID string) {
	if r := recover(); r != nil {
		b.log.Error().
			Str("event", event).
			Str("guild_id", guildID).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Recovered from handler panic")
	}
}

// onReady leaves blacklisted guilds and warms the session registry. Slash
// commands are synced from GuildCreate, which follows for every guild.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	defer b.recoverHandler("ready", "")

	for _, g := range r.Guilds {
		if b.leaveIfBlacklisted(s, g.ID) {
			continue
		}
		b.voice.OnGuildAdded(g.ID)
	}
	b.log.Info().
		Str("user", r.User.Username).
		Int("guilds", len(r.Guilds)).
		Msgf("✅ %s is running", config.AppName)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	defer b.recoverHandler("guild_create", g.ID)

	if b.leaveIfBlacklisted(s, g.ID) {
		return
	}
	b.log.Info().Str("guild_id", g.ID).Str("guild", g.Name).Msg("Guild available")
	b.voice.OnGuildAdded(g.ID)
	b.syncCommands(g.ID)
}

func (b *Bot) onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	defer b.recoverHandler("guild_delete", g.ID)

	// an outage, not a removal
	if g.Unavailable {
		b.log.Warn().Str("guild_id", g.ID).Msg("Guild became unavailable")
		return
	}
	b.log.Info().Str("guild_id", g.ID).Msg("Removed from guild")
	b.voice.OnGuildRemoved(g.ID)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer b.recoverHandler("interaction_create", i.GuildID)

	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	c := b.commands.Get(name)
	if c == nil {
		b.log.Warn().Str("command", name).Msg("Unknown command")
		return
	}

	muted := false
	if i.GuildID != "" {
		prefs, err := b.store.GuildPrefs(i.GuildID)
		if err != nil {
			b.log.Warn().Err(err).Str("guild_id", i.GuildID).Msg("Failed to load guild preferences")
		}
		muted = prefs.Muted
	}

	act := action.New(s, action.CommandRequest{Interaction: i.Interaction}, muted, b.log)
	cc := &command.Context{
		Interaction: i.Interaction,
		Action:      act,
		Voice:       b.voice,
		Store:       b.store,
		Voices:      b.synth.Voices(),
		Defaults:    command.Defaults{Voice: b.cfg.DefaultVoice, Rate: b.cfg.DefaultRate},
		IsAdmin:     isAdministrator(s, i.GuildID, i.Member, b.cfg),
		Log:         b.log.With().Str("action_id", act.ID).Logger(),
	}

	if err := c.Run(b.ctx, &cmd.Invocation{Name: name, Data: cc}); err != nil {
		b.log.Error().Err(err).Str("command", name).Str("action_id", act.ID).Msg("Error running slash command")
		act.Reply("Something went wrong, please try again later.")
	}
}

// onMessageCreate speaks messages posted in the guild's TTS channel.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverHandler("message_create", m.GuildID)

	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	prefs, err := b.store.GuildPrefs(m.GuildID)
	if err != nil {
		b.log.Warn().Err(err).Str("guild_id", m.GuildID).Msg("Failed to load guild preferences")
		return
	}
	if prefs.TTSChannelID == "" || prefs.TTSChannelID != m.ChannelID {
		return
	}

	text := m.ContentWithMentionsReplaced()
	if p := b.cfg.IgnorePrefix; p != "" && strings.HasPrefix(strings.TrimSpace(text), p) {
		return
	}

	act := action.New(s, action.MessageRequest{Message: m.Message}, prefs.Muted, b.log)
	b.voice.Speak(b.ctx, act, m.GuildID, m.Author.ID, text)
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	defer b.recoverHandler("voice_state_update", v.GuildID)

	if s.State.User != nil && v.UserID == s.State.User.ID {
		b.voice.OnBotVoiceStateUpdate(v.GuildID, v.ChannelID)
		return
	}
	before := ""
	if v.BeforeUpdate != nil {
		before = v.BeforeUpdate.ChannelID
	}
	b.voice.OnVoiceStateUpdate(v.GuildID, v.UserID, before, v.ChannelID)
}

func (b *Bot) leaveIfBlacklisted(s *discordgo.Session, guildID string) bool {
	if !b.cfg.IsGuildBlacklisted(guildID) {
		return false
	}
	b.log.Info().Str("guild_id", guildID).Msg("Leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild_id", guildID).Msg("Failed to leave guild")
	}
	return true
}

func (b *Bot) syncCommands(guildID string) {
	if !b.cfg.InitSlashCommands {
		b.log.Debug().Str("guild_id", guildID).Msg("Registering slash commands skipped")
		return
	}
	if err := b.sync.Sync(b.ctx, guildID, command.Definitions(b.commands)); err != nil {
		b.log.Error().Err(err).Str("guild_id", guildID).Msg("Error registering slash commands")
	}
}
