package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jafarshop/storefront/internal/repository/redis"
)

// sessionCmd groups the session inspection commands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or flush browser sessions",
	Long: `Inspect or flush storefront browser sessions held in Redis.

Available subcommands:
  show  - Print every field stored for a session
  flush - Delete a session, logging the browser out`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionFlushCmd = &cobra.Command{
	Use:   "flush <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionFlush,
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	return withSessions(args[0], func(ctx context.Context, sessions sessionStore, sessionID string) error {
		fields, err := sessions.Dump(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s\n", sessionID)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", k, fields[k])
		}
		return nil
	})
}

func runSessionFlush(cmd *cobra.Command, args []string) error {
	return withSessions(args[0], func(ctx context.Context, sessions sessionStore, sessionID string) error {
		if err := sessions.Destroy(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted\n", sessionID)
		return nil
	})
}

type sessionStore interface {
	Dump(ctx context.Context, sessionID string) (map[string]string, error)
	Destroy(ctx context.Context, sessionID string) error
}

func withSessions(sessionID string, fn func(ctx context.Context, sessions sessionStore, sessionID string) error) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("invalid session ID %q", sessionID)
	}

	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, redis.NewSessionRepository(client, cfg.Session.TTL, logger), sessionID)
}
