package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/keshon/voice-relay/internal/config"
)

// isAdministrator reports whether member may change guild settings: the
// configured developer, the guild owner, or anyone with Administrator or
// Manage Server.
func isAdministrator(s *discordgo.Session, guildID string, member *discordgo.Member, cfg *config.Config) bool {
	if member == nil || member.User == nil {
		return false
	}
	if config.IsDeveloper(cfg, member.User.ID) {
		return true
	}

	// interaction payloads carry the member's resolved permissions
	if member.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0 {
		return true
	}

	guild, err := s.State.Guild(guildID)
	if err != nil || guild == nil {
		return false
	}
	return member.User.ID == guild.OwnerID
}
