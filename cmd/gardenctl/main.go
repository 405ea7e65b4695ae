// Package main implements gardenctl, an operator CLI that works directly
// against the configured ledger store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/config"
	"github.com/GoSim-25-26J-441/garden-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/garden-backend/internal/ledger"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

var version = "dev"

// openStore is replaced in tests.
var openStore = func(ctx context.Context) (ledger.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.OpenStore(ctx, cfg.Store, zap.NewNop())
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gardenctl",
		Short: "Operator CLI for the garden project ledger",
		Long: `gardenctl inspects and seeds the ledger store configured through the
same environment as the API server (STORE_BACKEND, REDIS_ADDR, DB_DSN, SQLITE_PATH).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newDeriveCmd(), newShowCmd(), newBalanceCmd(), newMintCmd())
	return root
}

func newDeriveCmd() *cobra.Command {
	var name, creator string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the project id for a name and creator",
		Long: `Print the project id for a name and creator.

Examples:
  gardenctl derive --name Garden --creator 7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := domain.ParsePubkey(creator)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.DeriveProjectID(name, pk))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	cmd.Flags().StringVar(&creator, "creator", "", "Creator wallet (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newShowCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a project record as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := domain.ParsePubkey(id)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store ledger.Store) error {
				p, err := store.Get(ctx, pk)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Project id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newBalanceCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the funds-pool balance of an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := domain.ParsePubkey(account)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, store ledger.Store) error {
				amount, err := store.Balance(ctx, pk)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), amount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Account (required)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newMintCmd() *cobra.Command {
	var (
		account string
		amount  uint64
	)
	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Credit an account with new funds (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pk, err := domain.ParsePubkey(account)
			if err != nil {
				return err
			}
			if amount == 0 {
				return fmt.Errorf("--amount must be positive")
			}
			return withStore(cmd, func(ctx context.Context, store ledger.Store) error {
				if err := store.Mint(ctx, pk, amount); err != nil {
					return err
				}
				balance, err := store.Balance(ctx, pk)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s balance %d\n", pk, balance)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "Account to credit (required)")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "Amount to mint (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func withStore(cmd *cobra.Command, fn func(ctx context.Context, store ledger.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	return fn(ctx, store)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
