// Package command holds the bot's slash commands. Each command is a
// cmd.Command whose invocation data is a *Context built by the Discord
// adapter.
package command

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/action"
	"github.com/keshon/voice-relay/internal/storage"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/internal/voice"
	"github.com/keshon/voice-relay/pkg/cmd"
	"github.com/rs/zerolog"
)

const (
	CategoryInformation = "🕯️ Information"
	CategoryVoice       = "🔊 Voice"
	CategorySettings    = "⚙️ Settings"
)

var ErrWrongContext = errors.New("wrong context type")

// Voice is the part of the voice controller commands drive.
type Voice interface {
	Join(ctx context.Context, act *action.Action, guildID, userID string) voice.Result
	Leave(ctx context.Context, act *action.Action, guildID string) voice.Result
	Speak(ctx context.Context, act *action.Action, guildID, userID, text string) voice.Result
	State(guildID string) voice.State
}

// Defaults are the speech settings used when a user has none.
type Defaults struct {
	Voice string
	Rate  float64
}

// Context is the invocation data of a slash command.
type Context struct {
	Interaction *discordgo.Interaction
	Action      *action.Action
	Voice       Voice
	Store       storage.Store
	Voices      []tts.Voice
	Defaults    Defaults
	// IsAdmin is resolved by the adapter from the member's permissions.
	IsAdmin bool
	Log     zerolog.Logger
}

func (c *Context) GuildID() string { return c.Interaction.GuildID }

func (c *Context) User() *discordgo.User {
	if c.Interaction.Member != nil && c.Interaction.Member.User != nil {
		return c.Interaction.Member.User
	}
	if c.Interaction.User != nil {
		return c.Interaction.User
	}
	return &discordgo.User{}
}

func (c *Context) option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	if c.Interaction.Type != discordgo.InteractionApplicationCommand {
		return nil
	}
	for _, opt := range c.Interaction.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

// StringOption returns a string, channel or user option value by name.
func (c *Context) StringOption(name string) (string, bool) {
	opt := c.option(name)
	if opt == nil {
		return "", false
	}
	s, ok := opt.Value.(string)
	return s, ok
}

func (c *Context) BoolOption(name string) (bool, bool) {
	opt := c.option(name)
	if opt == nil {
		return false, false
	}
	b, ok := opt.Value.(bool)
	return b, ok
}

func (c *Context) NumberOption(name string) (float64, bool) {
	opt := c.option(name)
	if opt == nil {
		return 0, false
	}
	f, ok := opt.Value.(float64)
	return f, ok
}

// Meta is implemented by every slash command.
type Meta interface {
	Category() string
	AdminOnly() bool
	Definition() *discordgo.ApplicationCommand
}

// Definition returns the application command definition of c, looking
// through middleware wrappers.
func Definition(c cmd.Command) *discordgo.ApplicationCommand {
	meta, ok := cmd.Root(c).(Meta)
	if !ok {
		return nil
	}
	def := meta.Definition()
	if def == nil {
		return nil
	}
	if def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	if def.Name == "" {
		def.Name = c.Name()
	}
	if def.Description == "" {
		def.Description = c.Description()
	}
	if meta.AdminOnly() {
		perm := int64(discordgo.PermissionManageGuild)
		def.DefaultMemberPermissions = &perm
	}
	return def
}

func contextFrom(inv *cmd.Invocation) (*Context, error) {
	ctx, ok := cmd.DataAs[*Context](inv)
	if !ok || ctx == nil {
		return nil, ErrWrongContext
	}
	return ctx, nil
}
