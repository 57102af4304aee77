package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/erp/docflow/internal/domain/document"
	"github.com/spf13/cobra"
)

type engineOpener func(ctx context.Context) (engineAPI, func(), error)

// cli carries the lazily opened engine between the root command and its children
type cli struct {
	open   engineOpener
	engine engineAPI
	close  func()
}

func newCLI(open engineOpener) *cli {
	return &cli{open: open}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docctl",
		Short: "Operate the commercial document lifecycle",
		Long: `docctl drives offers, orders, deliveries and invoices through their
lifecycles against the configured database.

Configuration is read from config.toml, .env and DOCFLOW_* environment
variables, exactly like the server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		c.sweepOverdueCmd(),
		c.expireOffersCmd(),
		c.transitionCmd(),
		c.bulkCmd(),
		c.convertCmd(),
		schemaCmd(),
	)
	return root
}

// shutdown releases the engine if a command opened it
func (c *cli) shutdown() {
	if c.close != nil {
		c.close()
	}
	c.engine, c.close = nil, nil
}

// connect opens the engine on first use. Commands that never touch the
// database, like schema, therefore work without one.
func (c *cli) connect(cmd *cobra.Command) (engineAPI, error) {
	if c.engine != nil {
		return c.engine, nil
	}
	engine, closeFn, err := c.open(cmd.Context())
	if err != nil {
		return nil, err
	}
	c.engine, c.close = engine, closeFn
	return engine, nil
}

func parseKindArg(s string) (document.Kind, error) {
	kind, err := document.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("unknown document kind %q (offer, order, delivery, invoice)", s)
	}
	return kind, nil
}

// parseTimeFlag accepts RFC3339 or a plain date, which is read as midnight UTC
func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC3339 or YYYY-MM-DD: %q", name, value)
	}
	return &t, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
