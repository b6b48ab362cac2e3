package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jafarshop/storefront/internal/api/middleware"
)

// hashKeyCmd hashes an operator key for ADMIN_KEY_HASH
var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <api-key>",
	Short: "Hash an admin API key",
	Long: `Hash an admin API key with bcrypt. Put the printed hash in
ADMIN_KEY_HASH and send the plain key as a Bearer token to /v1/admin.`,
	Args: cobra.ExactArgs(1),
	RunE: runHashKey,
}

func runHashKey(cmd *cobra.Command, args []string) error {
	apiKey := args[0]
	if len(apiKey) < 16 {
		return fmt.Errorf("API key must be at least 16 characters")
	}

	hash, err := middleware.HashAPIKey(apiKey)
	if err != nil {
		return fmt.Errorf("failed to hash API key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ADMIN_KEY_HASH=%s\n\n", hash)
	fmt.Fprintf(out, "Use the key in the Authorization header:\n")
	fmt.Fprintf(out, "Authorization: Bearer %s\n", apiKey)
	return nil
}
