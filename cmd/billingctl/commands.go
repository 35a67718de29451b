package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/infrastructure/lease"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// refreshLeaseKey serializes bulk refreshes across hosts.
const refreshLeaseKey = "billing:refresh"

var refreshOpts refreshFlags

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Overwrite ledger rows with the provider's subscription state",
	Example: `  # Rows whose period ends three days from now
  billingctl refresh --active-only --days-left 3

  # Two specific users
  billingctl refresh --user-ids 550e8400-e29b-41d4-a716-446655440000,6ba7b810-9dad-11d1-80b4-00c04fd430c8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := refreshOpts.filter(cmd.Flags().Changed)
		if err != nil {
			return err
		}

		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			held, err := rt.usecases.Leases.Acquire(ctx, refreshLeaseKey, rt.cfg.Billing.RefreshLeaseTTL)
			if errors.Is(err, lease.ErrHeld) {
				return fmt.Errorf("another refresh is running")
			}
			if err != nil {
				return fmt.Errorf("failed to acquire refresh lease: %w", err)
			}
			defer func() {
				if err := held.Release(context.Background()); err != nil {
					rt.logger.Warn("Failed to release refresh lease", zap.Error(err))
				}
			}()

			result, err := rt.usecases.Reconciliation.Refresh(ctx, filter)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.AllSucceeded() {
				return fmt.Errorf("%d of %d subscriptions failed to refresh", len(result.Failed), result.Selected)
			}
			return nil
		})
	},
}

var provisionPlansCmd = &cobra.Command{
	Use:   "provision-plans",
	Short: "Create every unprovisioned active plan at the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			summary, err := rt.usecases.Provisioner.ProvisionPending(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d plans failed to provision", summary.Failed)
			}
			return nil
		})
	},
}

var plansFile string

var syncPlansCmd = &cobra.Command{
	Use:     "sync-plans",
	Short:   "Upsert the plan catalog from YAML and provision new plans",
	Example: `  billingctl sync-plans --file configs/plans.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			path := plansFile
			if path == "" {
				path = rt.cfg.Billing.PlansFile
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}
			catalog, err := usecase.ParseCatalog(data)
			if err != nil {
				return err
			}

			summary, err := rt.usecases.Catalog.Sync(ctx, catalog)
			if err != nil {
				return err
			}
			rt.logger.Info("Plan catalog synced",
				zap.String("file", path),
				zap.Int("created", summary.Created),
				zap.Int("updated", summary.Updated))
			return printJSON(cmd.OutOrStdout(), summary)
		})
	},
}

var clearDanglingCmd = &cobra.Command{
	Use:   "clear-dangling",
	Short: "Cancel provider subscriptions no ledger row refers to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			result, err := rt.usecases.Reconciliation.ClearDangling(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

func init() {
	f := refreshCmd.Flags()
	f.StringSliceVar(&refreshOpts.userIDs, "user-ids", nil, "comma-separated user UUIDs")
	f.BoolVar(&refreshOpts.activeOnly, "active-only", false, "only rows that are active or trialing")
	f.IntVar(&refreshOpts.daysLeft, "days-left", 0, "rows whose period ends N days from now")
	f.IntVar(&refreshOpts.daysAgo, "days-ago", 0, "rows whose period ended N days ago")
	f.IntVar(&refreshOpts.rangeStart, "range-start", 0, "start of a period-end window, in days from now")
	f.IntVar(&refreshOpts.rangeEnd, "range-end", 0, "end of a period-end window, in days from now")
	refreshCmd.MarkFlagsRequiredTogether("range-start", "range-end")

	syncPlansCmd.Flags().StringVarP(&plansFile, "file", "f", "", "catalog YAML (defaults to billing.plans_file)")
}
