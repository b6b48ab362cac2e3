package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jafarshop/storefront/internal/backend"
	"github.com/jafarshop/storefront/internal/domain"
)

const findPageSize = 50

var findMaxPages int

// findProductCmd pages through the backend catalog looking for a product
var findProductCmd = &cobra.Command{
	Use:   "find-product <name-or-slug>",
	Short: "Find a product in the backend catalog",
	Long: `Search the backend catalog for products whose name or slug contains
the given text and print their id, price, stock and variants.`,
	Args: cobra.ExactArgs(1),
	RunE: runFindProduct,
}

func init() {
	findProductCmd.Flags().IntVar(&findMaxPages, "max-pages", 20, "Stop after this many catalog pages")
}

func runFindProduct(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnv()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	target := strings.ToLower(strings.TrimSpace(args[0]))
	client := backend.NewClient(cfg.Backend, logger)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Searching for: %s\n\n", args[0])

	found := 0
	for page := 1; page <= findMaxPages; page++ {
		list, err := client.ListProducts(ctx, backend.ProductQuery{
			Page:   page,
			Limit:  findPageSize,
			Search: args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to list products (page %d): %w", page, err)
		}

		for _, p := range list.Data {
			if !matchesProduct(p, target) {
				continue
			}
			found++
			printProduct(cmd, p)
		}

		if page >= list.Pagination.TotalPages || len(list.Data) == 0 {
			break
		}
	}

	if found == 0 {
		return fmt.Errorf("no product matching %q", args[0])
	}
	fmt.Fprintf(out, "%d product(s) found\n", found)
	return nil
}

func matchesProduct(p domain.Product, target string) bool {
	return strings.Contains(strings.ToLower(p.Name), target) ||
		strings.Contains(strings.ToLower(p.Slug), target)
}

func printProduct(cmd *cobra.Command, p domain.Product) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Product: %s\n", p.Name)
	fmt.Fprintf(out, "  ID:    %s\n", p.ID)
	fmt.Fprintf(out, "  Slug:  %s\n", p.Slug)
	fmt.Fprintf(out, "  Price: %.2f (MRP %.2f)\n", p.Price, p.MRP)
	fmt.Fprintf(out, "  Stock: %d\n", p.Stock)
	for _, v := range p.Variants {
		fmt.Fprintf(out, "  Variant %s: %s, %.2f, stock %d\n", v.ID, v.Name, v.Price, v.Stock)
	}
	fmt.Fprintln(out)
}
