package command

import (
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/config"
	"github.com/keshon/voice-relay/internal/storage"
	"github.com/keshon/voice-relay/internal/tts"
	"github.com/keshon/voice-relay/pkg/cmd"
)

// All returns the bot's commands without middleware.
func All(voices []tts.Voice) []cmd.Command {
	return []cmd.Command{
		&JoinCommand{},
		&LeaveCommand{},
		&SayCommand{},
		&SetupCommand{},
		&MuteCommand{},
		NewVoiceCommand(voices),
		&RateCommand{},
		&StatusCommand{},
	}
}

// Register adds every command to r wrapped in the standard middleware.
func Register(r *cmd.Registry, store storage.Store, voices []tts.Voice) {
	for _, c := range All(voices) {
		r.MustRegister(cmd.Apply(c,
			WithAdminOnly(),
			WithGuildOnly(),
			WithCommandLogger(store),
		))
	}
}

// Definitions returns the slash definitions of r ordered by category, then name.
func Definitions(r *cmd.Registry) []*discordgo.ApplicationCommand {
	type entry struct {
		category string
		def      *discordgo.ApplicationCommand
	}
	var list []entry
	for _, c := range r.GetAll() {
		def := Definition(c)
		if def == nil {
			continue
		}
		meta := cmd.Root(c).(Meta)
		list = append(list, entry{category: meta.Category(), def: def})
	}
	sort.SliceStable(list, func(i, j int) bool {
		wi, wj := config.CategoryWeight(list[i].category), config.CategoryWeight(list[j].category)
		if wi != wj {
			return wi < wj
		}
		return list[i].def.Name < list[j].def.Name
	})

	defs := make([]*discordgo.ApplicationCommand, len(list))
	for i, e := range list {
		defs[i] = e.def
	}
	return defs
}
