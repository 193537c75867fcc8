// rulectl is an operator CLI for inspecting and seeding pricing rules
// directly against the database. It is meant for deploy-time setup and
// debugging, not for routine administration (use the admin API for that).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/averline/concierge/internal"
	"github.com/averline/concierge/internal/pricing"
	"github.com/averline/concierge/internal/repository"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rulectl",
	Short: "Manage concierge pricing rules",
	Long: `rulectl manages the pricing rules that drive credit-cost calculation.

Examples:
  rulectl list
  rulectl seed
  rulectl history private_aviation --limit 20`,
	SilenceUsage: true,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all pricing rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, cleanup, err := openRepository()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		rules, err := repo.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}

		if len(rules) == 0 {
			fmt.Println("No pricing rules configured.")
			return nil
		}

		for _, rule := range rules {
			status := "active"
			if !rule.IsActive {
				status = "inactive"
			}
			fmt.Printf("%-20s base=%-6s %s  updated %s\n",
				rule.Category,
				fmt.Sprintf("%g", rule.BaseCredits),
				status,
				rule.UpdatedAt.Format(time.RFC3339),
			)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default rules for categories that have none",
	Long: `Seed inserts a default rule (base credits, price tiers, and priority
multipliers) for every known service category that does not already
have a rule. Existing rules are never touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, cleanup, err := openRepository()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		existing, err := repo.ListRules(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		present := make(map[string]bool, len(existing))
		for _, rule := range existing {
			present[rule.Category] = true
		}

		seeded := 0
		for _, rule := range pricing.DefaultRules() {
			if present[rule.Category] {
				continue
			}
			if _, err := repo.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("failed to seed %s: %w", rule.Category, err)
			}
			fmt.Printf("seeded %s\n", rule.Category)
			seeded++
		}

		if seeded == 0 {
			fmt.Println("All categories already have rules, nothing to do.")
		} else {
			fmt.Printf("Seeded %d rule(s).\n", seeded)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <category>",
	Short: "Show the audit history for a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, cleanup, err := openRepository()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := commandContext()
		defer cancel()

		changes, err := repo.ListRuleChanges(ctx, args[0], historyLimit)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if len(changes) == 0 {
			fmt.Println("No history for this category.")
			return nil
		}

		for _, change := range changes {
			fmt.Printf("%s  %-6s  by %s\n",
				change.CreatedAt.Format(time.RFC3339),
				change.Action,
				change.ChangedBy,
			)
			if len(change.New) > 0 {
				var buf map[string]interface{}
				if err := json.Unmarshal(change.New, &buf); err == nil {
					pretty, _ := json.MarshalIndent(buf, "  ", "  ")
					fmt.Printf("  %s\n", pretty)
				}
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries to show")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(historyCmd)
}

// openRepository connects to the database from the environment configuration.
func openRepository() (*repository.Repository, func(), error) {
	cfg, err := internal.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config initialization failed: %w", err)
	}
	logger := internal.NewLogger(os.Stderr, cfg.Env, "warn")

	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	return repository.New(db, logger), func() { db.Close() }, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
