package main

import (
	"fmt"
	"time"

	"github.com/erp/docflow/internal/application/lifecycle"
	"github.com/erp/docflow/internal/domain/document"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func transitionFlags(cmd *cobra.Command) {
	cmd.Flags().String("reason", "", "Reason recorded on cancel or reject")
	cmd.Flags().String("signed-by", "", "Signer name, required to sign a delivery")
	cmd.Flags().String("paid-at", "", "Payment time for pay (RFC3339 or YYYY-MM-DD)")
}

func readTransitionParams(cmd *cobra.Command) (document.TransitionParams, error) {
	reason, _ := cmd.Flags().GetString("reason")
	signedBy, _ := cmd.Flags().GetString("signed-by")
	paidAtFlag, _ := cmd.Flags().GetString("paid-at")
	paidAt, err := parseTimeFlag("paid-at", paidAtFlag)
	if err != nil {
		return document.TransitionParams{}, err
	}
	return document.TransitionParams{Reason: reason, SignedBy: signedBy, PaidAt: paidAt}, nil
}

func (c *cli) transitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transition KIND ID ACTION",
		Short: "Apply one action to one document",
		Example: `  docctl transition invoice 0b4f... pay --paid-at 2026-03-02
  docctl transition delivery 7c1e... sign --signed-by "J. Doe"
  docctl transition order 91aa... cancel --reason "customer withdrew"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[1])
			}
			params, err := readTransitionParams(cmd)
			if err != nil {
				return err
			}

			engine, err := c.connect(cmd)
			if err != nil {
				return err
			}
			doc, err := engine.Transition(cmd.Context(), kind, id, args[2], params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lifecycle.ToView(doc))
		},
	}
	transitionFlags(cmd)
	return cmd
}

func (c *cli) bulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk KIND ACTION ID...",
		Short: "Apply one action to many documents, reporting failures per id",
		Example: `  docctl bulk invoice send 0b4f... 7c1e... 91aa...`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(args)-2)
			for _, raw := range args[2:] {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid document id %q", raw)
				}
				ids = append(ids, id)
			}
			params, err := readTransitionParams(cmd)
			if err != nil {
				return err
			}

			engine, err := c.connect(cmd)
			if err != nil {
				return err
			}
			result, err := engine.BulkTransition(cmd.Context(), kind, ids, args[1], params)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.FailedCount > 0 {
				return fmt.Errorf("%d of %d documents failed", result.FailedCount, len(ids))
			}
			return nil
		},
	}
	transitionFlags(cmd)
	return cmd
}

func (c *cli) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert KIND ID TARGET",
		Short: "Create a follow-up document from an existing one",
		Example: `  docctl convert offer 0b4f... order
  docctl convert order 7c1e... invoice --due-date 2026-04-30`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			id, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid document id %q", args[1])
			}
			target, err := parseKindArg(args[2])
			if err != nil {
				return err
			}

			var params document.ConversionParams
			for flag, dst := range map[string]**time.Time{
				"due-date":      &params.DueDate,
				"issue-date":    &params.IssueDate,
				"delivery-date": &params.DeliveryDate,
			} {
				value, _ := cmd.Flags().GetString(flag)
				if *dst, err = parseTimeFlag(flag, value); err != nil {
					return err
				}
			}

			engine, err := c.connect(cmd)
			if err != nil {
				return err
			}
			doc, err := engine.Convert(cmd.Context(), source, id, target, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), lifecycle.ToView(doc))
		},
	}
	cmd.Flags().String("due-date", "", "Invoice due date, required when TARGET is invoice")
	cmd.Flags().String("issue-date", "", "Invoice issue date")
	cmd.Flags().String("delivery-date", "", "Planned delivery date")
	return cmd
}
