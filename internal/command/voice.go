package command

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/voice"
	"github.com/keshon/voice-relay/pkg/cmd"
)

type JoinCommand struct{}

func (c *JoinCommand) Name() string        { return "join" }
func (c *JoinCommand) Description() string { return "Join your voice channel" }
func (c *JoinCommand) Category() string    { return CategoryVoice }
func (c *JoinCommand) AdminOnly() bool     { return false }

func (c *JoinCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *JoinCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	cc.Voice.Join(ctx, cc.Action, cc.GuildID(), cc.User().ID)
	return nil
}

type LeaveCommand struct{}

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Leave the voice channel" }
func (c *LeaveCommand) Category() string    { return CategoryVoice }
func (c *LeaveCommand) AdminOnly() bool     { return false }

func (c *LeaveCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{Name: c.Name(), Description: c.Description()}
}

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	cc.Voice.Leave(ctx, cc.Action, cc.GuildID())
	return nil
}

type SayCommand struct{}

func (c *SayCommand) Name() string        { return "say" }
func (c *SayCommand) Description() string { return "Speak a message in your voice channel" }
func (c *SayCommand) Category() string    { return CategoryVoice }
func (c *SayCommand) AdminOnly() bool     { return false }

func (c *SayCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "What to say",
				Required:    true,
				MaxLength:   2000,
			},
		},
	}
}

func (c *SayCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	cc, err := contextFrom(inv)
	if err != nil {
		return err
	}
	text, _ := cc.StringOption("text")
	if cc.Voice.Speak(ctx, cc.Action, cc.GuildID(), cc.User().ID, text) == voice.Skipped {
		cc.Action.Reply("Nothing to say. Join a voice channel and send some text.")
	}
	return nil
}
