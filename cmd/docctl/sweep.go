package main

import (
	"context"
	"time"

	"github.com/erp/docflow/internal/infrastructure/logger"
	"github.com/erp/docflow/internal/infrastructure/scheduler"
	"github.com/erp/docflow/internal/interfaces/http/handler"
	"github.com/spf13/cobra"
)

func (c *cli) sweepOverdueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark every SENT invoice whose due date has passed as OVERDUE",
		Long: `Mark every SENT invoice whose due date lies before --now as OVERDUE.

Running it twice for the same instant changes nothing the second time, so it is
safe to call from cron at any frequency.`,
		Example: `  docctl sweep-overdue
  docctl sweep-overdue --now 2026-03-31T23:59:59Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSweep(cmd, scheduler.SweepOverdueInvoices, func(e engineAPI) func(context.Context, time.Time) (int, error) {
				return e.SweepOverdue
			})
		},
	}
	cmd.Flags().String("now", "", "Reference time (RFC3339 or YYYY-MM-DD, default: current time)")
	return cmd
}

func (c *cli) expireOffersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire-offers",
		Short: "Mark every SENT offer past its valid-until date as EXPIRED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSweep(cmd, scheduler.SweepExpiredOffers, func(e engineAPI) func(context.Context, time.Time) (int, error) {
				return e.SweepExpiredOffers
			})
		},
	}
	cmd.Flags().String("now", "", "Reference time (RFC3339 or YYYY-MM-DD, default: current time)")
	return cmd
}

func (c *cli) runSweep(cmd *cobra.Command, name string, pick func(engineAPI) func(context.Context, time.Time) (int, error)) error {
	nowFlag, _ := cmd.Flags().GetString("now")
	now := time.Now().UTC()
	if at, err := parseTimeFlag("now", nowFlag); err != nil {
		return err
	} else if at != nil {
		now = at.UTC()
	}

	engine, err := c.connect(cmd)
	if err != nil {
		return err
	}
	n, err := pick(engine)(logger.WithOperation(cmd.Context(), "docctl-"+name), now)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), handler.SweepResponse{Sweep: name, Transitioned: n, Now: now})
}
