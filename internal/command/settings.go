package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/pkg/cmd"
)

const (
	minRate = 0.5
	maxRate = 2.0
)

type SetupCommand struct{}

func (c *SetupCommand) Name() string        { return "setup" }
func (c *SetupCommand) Description() string { return "Choose the channel whose messages are spoken" }
func (c *SetupCommand) Category() string    { return CategorySettings }
func (c *SetupCommand) AdminOnly() bool     { return true }

func (c *SetupCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "Text channel to read aloud; leave empty to turn reading off",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
		},
	}
}

func (c *SetupCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	cc.Action.Defer()

	channelID, _ := cc.StringOption("channel")
	if err := cc.Store.SetTTSChannel(cc.GuildID(), channelID); err != nil {
		return fmt.Errorf("failed to save tts channel: %w", err)
	}
	if channelID == "" {
		cc.Action.Reply("Messages are no longer read aloud.")
		return nil
	}
	cc.Action.Reply(fmt.Sprintf("Messages in <#%s> will be read aloud.", channelID))
	return nil
}

type MuteCommand struct{}

func (c *MuteCommand) Name() string        { return "mute" }
func (c *MuteCommand) Description() string { return "Hide the bot's replies from other members" }
func (c *MuteCommand) Category() string    { return CategorySettings }
func (c *MuteCommand) AdminOnly() bool     { return true }

func (c *MuteCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "enabled",
				Description: "Mute replies",
				Required:    true,
			},
		},
	}
}

func (c *MuteCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	cc.Action.Defer()

	enabled, _ := cc.BoolOption("enabled")
	if err := cc.Store.SetMuted(cc.GuildID(), enabled); err != nil {
		return fmt.Errorf("failed to save mute flag: %w", err)
	}
	if enabled {
		cc.Action.Reply("Replies are muted. Only the member who asked will see them.")
	} else {
		cc.Action.Reply("Replies are visible to everyone again.")
	}
	return nil
}

type VoiceCommand struct {
	voices []tts.Voice
}

func NewVoiceCommand(voices []tts.Voice) *VoiceCommand {
	return &VoiceCommand{voices: voices}
}

func (c *VoiceCommand) Name() string        { return "voice" }
func (c *VoiceCommand) Description() string { return "Choose the voice your messages are read with" }
func (c *VoiceCommand) Category() string    { return CategorySettings }
func (c *VoiceCommand) AdminOnly() bool     { return false }

func (c *VoiceCommand) Definition() *discordgo.ApplicationCommand {
	opt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: "Voice name",
		Required:    true,
	}
	// Discord allows at most 25 choices
	for i, v := range c.voices {
		if i == 25 {
			break
		}
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{Name: v.Label, Value: v.ID})
	}
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options:     []*discordgo.ApplicationCommandOption{opt},
	}
}

func (c *VoiceCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	name, _ := cc.StringOption("name")
	v, ok := tts.FindVoice(c.voices, name)
	if !ok {
		ids := make([]string, len(c.voices))
		for i, v := range c.voices {
			ids[i] = v.ID
		}
		cc.Action.Reply(fmt.Sprintf("Unknown voice %q. Available: %s", name, strings.Join(ids, ", ")))
		return nil
	}
	if err := cc.Store.SetUserVoice(cc.User().ID, v.ID); err != nil {
		return fmt.Errorf("failed to save voice: %w", err)
	}
	cc.Action.Reply(fmt.Sprintf("Your messages will be read with the %s voice.", v.Label))
	return nil
}

type RateCommand struct{}

func (c *RateCommand) Name() string        { return "rate" }
func (c *RateCommand) Description() string { return "Set how fast your messages are read" }
func (c *RateCommand) Category() string    { return CategorySettings }
func (c *RateCommand) AdminOnly() bool     { return false }

func (c *RateCommand) Definition() *discordgo.ApplicationCommand {
	lo := minRate
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionNumber,
				Name:        "value",
				Description: fmt.Sprintf("Speed multiplier between %.1f and %.1f", minRate, maxRate),
				Required:    true,
				MinValue:    &lo,
				MaxValue:    maxRate,
			},
		},
	}
}

func (c *RateCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	rate, _ := cc.NumberOption("value")
	if rate < minRate || rate > maxRate {
		cc.Action.Reply(fmt.Sprintf("Rate must be between %.1f and %.1f.", minRate, maxRate))
		return nil
	}
	if err := cc.Store.SetUserRate(cc.User().ID, rate); err != nil {
		return fmt.Errorf("failed to save rate: %w", err)
	}
	cc.Action.Reply(fmt.Sprintf("Your messages will be read at %.2fx speed.", rate))
	return nil
}
