package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/pkg/cmd"
)

type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Show the voice session and your settings" }
func (c *StatusCommand) Category() string    { return CategoryInformation }
func (c *StatusCommand) AdminOnly() bool     { return false }

func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *StatusCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}

	guild, err := cc.Store.GuildPrefs(cc.GuildID())
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}
	user, err := cc.Store.UserPrefs(cc.User().ID)
	if err != nil {
		return fmt.Errorf("failed to load user settings: %w", err)
	}

	voiceID, rate := cc.Defaults.Voice, cc.Defaults.Rate
	if user.Voice != "" {
		voiceID = user.Voice
	}
	if user.Rate > 0 {
		rate = user.Rate
	}
	channel := "not set"
	if guild.TTSChannelID != "" {
		channel = fmt.Sprintf("<#%s>", guild.TTSChannelID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Voice session: %s\n", cc.Voice.State(cc.GuildID()))
	fmt.Fprintf(&sb, "TTS channel: %s\n", channel)
	fmt.Fprintf(&sb, "Muted: %t\n", guild.Muted)
	fmt.Fprintf(&sb, "Your voice: %s at %.2fx", voiceID, rate)
	cc.Action.Reply(sb.String())
	return nil
}
