package main

import (
	"fmt"
	"strings"

	"github.com/erp/docflow/internal/interfaces/http/handler"
	"github.com/spf13/cobra"
)

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema NAME",
		Short:     "Print the JSON Schema of an API request payload",
		Long:      "Print the JSON Schema of an API request payload. Known names: " + strings.Join(handler.SchemaNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: handler.SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := handler.Schema(args[0])
			if err != nil {
				return fmt.Errorf("unknown schema %q, expected one of: %s", args[0], strings.Join(handler.SchemaNames(), ", "))
			}
			return printJSON(cmd.OutOrStdout(), schema)
		},
	}
}
