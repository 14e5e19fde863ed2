package action

import "github.com/bwmarrin/discordgo"

// Request is the inbound event an Action answers. It is either a
// CommandRequest or a MessageRequest.
type Request interface {
	GuildID() string
	ChannelID() string
	UserID() string
	kind() string
}

// CommandRequest is a slash command invocation.
type CommandRequest struct {
	Interaction *discordgo.Interaction
}

func (r CommandRequest) GuildID() string   { return r.Interaction.GuildID }
func (r CommandRequest) ChannelID() string { return r.Interaction.ChannelID }
func (r CommandRequest) kind() string      { return "command" }

func (r CommandRequest) UserID() string {
	if r.Interaction.Member != nil && r.Interaction.Member.User != nil {
		return r.Interaction.Member.User.ID
	}
	if r.Interaction.User != nil {
		return r.Interaction.User.ID
	}
	return ""
}

// MessageRequest is a message posted in a guild's TTS channel.
type MessageRequest struct {
	Message *discordgo.Message
}

func (r MessageRequest) GuildID() string   { return r.Message.GuildID }
func (r MessageRequest) ChannelID() string { return r.Message.ChannelID }
func (r MessageRequest) kind() string      { return "message" }

func (r MessageRequest) UserID() string {
	if r.Message.Author == nil {
		return ""
	}
	return r.Message.Author.ID
}
