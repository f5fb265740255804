package middleware

import (
	"context"
	"log/slog"
	"time"

	"shorestay/internal/app/commands"
)

// CommandLogging logs every dispatched command with its outcome and duration.
func CommandLogging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			result, err := nextFn(ctx, cmd)
			if logger == nil {
				return result, err
			}
			if err != nil {
				logger.Warn("command failed", "command", cmd.Key(), "duration", time.Since(start), "error", err)
			} else {
				logger.Info("command handled", "command", cmd.Key(), "duration", time.Since(start))
			}
			return result, err
		})
	}
}
