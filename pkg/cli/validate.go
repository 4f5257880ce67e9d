package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	var fixtures fixtureFlags

	cmd := &cobra.Command{
		Use:   "validate -f FIXTURE...",
		Short: "Check fixtures without starting a server",
		Long: `Load every fixture, check it against the fixture schema and compile its
rules. Invalid patterns, expressions, column types and result shapes are
reported here instead of on the first statement.`,
		Example: `  mysqlmock validate -f cluster.yaml
  mysqlmock validate -f 'fixtures/**/*.yaml'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fx, c, err := fixtures.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "OK: %d rules, %d globals from %d files\n",
				c.Rules.Len(), len(c.Globals), len(fx.Sources))
			return err
		},
	}
	fixtures.register(cmd)
	return cmd
}
