package discord

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// commandAPI is the subset of *discordgo.Session used to manage guild
// application commands.
type commandAPI interface {
	ApplicationCommands(appID, guildID string, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	ApplicationCommandCreate(appID, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...discordgo.RequestOption) error
}

// commandSync keeps a guild's slash commands in line with the local
// definitions, skipping definitions whose hash has not changed.
type commandSync struct {
	api     commandAPI
	appID   func() (string, error)
	cache   *commandCache
	limiter *rate.Limiter
	log     zerolog.Logger
}

func newCommandSync(dg *discordgo.Session, cache *commandCache, limiter *rate.Limiter, log zerolog.Logger) *commandSync {
	return &commandSync{
		api:     dg,
		appID:   func() (string, error) { return appID(dg) },
		cache:   cache,
		limiter: limiter,
		log:     log,
	}
}

// Sync deletes obsolete commands and creates or updates changed ones.
func (c *commandSync) Sync(ctx context.Context, guildID string, defs []*discordgo.ApplicationCommand) error {
	appID, err := c.appID()
	if err != nil {
		return err
	}
	remote, err := c.api.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("failed to list commands: %w", err)
	}

	hashes := c.cache.Load(guildID)
	wanted := make(map[string]string, len(defs))
	for _, d := range defs {
		wanted[d.Name] = hashCommand(d)
	}

	registered := make(map[string]bool, len(remote))
	for _, rc := range remote {
		if _, ok := wanted[rc.Name]; ok {
			registered[rc.Name] = true
			continue
		}
		c.log.Info().Str("guild_id", guildID).Str("command", rc.Name).Msg("Deleting obsolete command")
		if err := c.wait(ctx); err != nil {
			return err
		}
		if err := c.api.ApplicationCommandDelete(appID, guildID, rc.ID); err != nil {
			c.log.Error().Err(err).Str("guild_id", guildID).Str("command", rc.Name).Msg("Failed to delete command")
			continue
		}
		delete(hashes, rc.Name)
	}

	changed := 0
	for _, d := range defs {
		if registered[d.Name] && hashes[d.Name] == wanted[d.Name] {
			continue
		}
		if err := c.wait(ctx); err != nil {
			return err
		}
		if _, err := c.api.ApplicationCommandCreate(appID, guildID, d); err != nil {
			c.log.Error().Err(err).Str("guild_id", guildID).Str("command", d.Name).Msg("Failed to register command")
			continue
		}
		hashes[d.Name] = wanted[d.Name]
		changed++
	}

	if changed > 0 {
		c.log.Info().Str("guild_id", guildID).Int("count", changed).Msg("Registered changed commands")
	}
	return c.cache.Save(guildID, hashes)
}

func (c *commandSync) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// appID returns the bot's application ID, fetching it when State has none.
func appID(dg *discordgo.Session) (string, error) {
	if dg.State != nil && dg.State.User != nil && dg.State.User.ID != "" {
		return dg.State.User.ID, nil
	}
	u, err := dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

// commandCache persists the hash of every registered command per guild.
type commandCache struct {
	dir string
}

func newCommandCache(dir string) *commandCache {
	return &commandCache{dir: dir}
}

func (c *commandCache) path(guildID string) string {
	return filepath.Join(c.dir, guildID+".json")
}

func (c *commandCache) Load(guildID string) map[string]string {
	out := make(map[string]string)
	if data, err := os.ReadFile(c.path(guildID)); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func (c *commandCache) Save(guildID string, hashes map[string]string) error {
	path := c.path(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create command cache dir: %w", err)
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// hashCommand returns a deterministic SHA-1 of a command's stable fields.
func hashCommand(c *discordgo.ApplicationCommand) string {
	stable := map[string]any{
		"name":        c.Name,
		"description": c.Description,
		"type":        c.Type,
	}
	if c.DefaultMemberPermissions != nil {
		stable["permissions"] = *c.DefaultMemberPermissions
	}
	if len(c.Options) > 0 {
		stable["options"] = normalizeOptions(c.Options)
	}
	data, _ := json.Marshal(stable)
	return fmt.Sprintf("%x", sha1.Sum(data))
}

func normalizeOptions(opts []*discordgo.ApplicationCommandOption) []map[string]any {
	out := make([]map[string]any, len(opts))
	for i, o := range opts {
		entry := map[string]any{
			"name":        o.Name,
			"description": o.Description,
			"type":        o.Type,
			"required":    o.Required,
		}
		if len(o.Choices) > 0 {
			choices := make([]map[string]any, len(o.Choices))
			for j, ch := range o.Choices {
				choices[j] = map[string]any{"name": ch.Name, "value": ch.Value}
			}
			entry["choices"] = choices
		}
		if len(o.ChannelTypes) > 0 {
			entry["channel_types"] = o.ChannelTypes
		}
		if o.MinValue != nil {
			entry["min_value"] = *o.MinValue
		}
		if o.MaxValue != 0 {
			entry["max_value"] = o.MaxValue
		}
		if len(o.Options) > 0 {
			entry["options"] = normalizeOptions(o.Options)
		}
		out[i] = entry
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["name"].(string) < out[j]["name"].(string)
	})
	return out
}
