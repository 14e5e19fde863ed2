package command

import (
	"context"
	"time"

	"github.com/keshon/voice-relay/internal/storage"
	"github.com/keshon/voice-relay/pkg/cmd"
)

// WithGuildOnly refuses to run commands outside a guild.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			cc, err := contextFrom(inv)
			if err != nil {
				return err
			}
			if cc.GuildID() == "" {
				cc.Action.Reply("This command only works in a server.")
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithAdminOnly refuses admin commands to members without the permission.
func WithAdminOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			cc, err := contextFrom(inv)
			if err != nil {
				return err
			}
			if meta, ok := cmd.Root(c).(Meta); ok && meta.AdminOnly() && !cc.IsAdmin {
				cc.Action.Reply("You need the Manage Server permission to use this command.")
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger records every guild invocation in the command history.
func WithCommandLogger(store storage.Store) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			runErr := c.Run(ctx, inv)

			cc, err := contextFrom(inv)
			if err != nil || cc.GuildID() == "" {
				return runErr
			}
			user := cc.User()
			rec := storage.CommandRecord{
				ChannelID: cc.Interaction.ChannelID,
				UserID:    user.ID,
				Username:  user.Username,
				Command:   c.Name(),
				Datetime:  time.Now(),
			}
			if err := store.AppendCommand(cc.GuildID(), rec); err != nil {
				cc.Log.Warn().Err(err).Str("command", c.Name()).Msg("Failed to log command")
			}
			return runErr
		})
	}
}
