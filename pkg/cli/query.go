package cli

import (
	"fmt"

	"github.com/getmockd/mysqlmock/pkg/response"
	"github.com/spf13/cobra"
)

func newQueryCommand() *cobra.Command {
	var (
		fixtures     fixtureFlags
		driverErrors bool
	)

	cmd := &cobra.Command{
		Use:   "query -f FIXTURE... STATEMENT...",
		Short: "Run statements against fixtures offline",
		Long: `Run each statement in order on one session and print the replies the
way the mysql client would. Simulated latency is reported, not waited for.`,
		Example: `  mysqlmock query -f cluster.yaml "select @@port" "select @@version_comment limit 1"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := fixtures.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			eng := c.NewEngine()
			store := eng.Store()
			sess := store.NewSession()
			defer store.CloseSession(sess)

			out := cmd.OutOrStdout()
			for i, stmt := range args {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "mysql> %s\n", stmt)
				resp, latency, err := eng.Dispatch(stmt, sess)
				if err != nil {
					return err
				}
				if driverErrors && resp.Kind == response.KindError {
					fmt.Fprintln(out, resp.Err.MySQLError().Error())
				} else if err := response.Render(out, resp); err != nil {
					return err
				}
				if latency > 0 {
					fmt.Fprintf(out, "(latency %s)\n", latency)
				}
			}
			return nil
		},
	}
	fixtures.register(cmd)
	cmd.Flags().BoolVar(&driverErrors, "driver-errors", false, "print modeled errors as go-sql-driver/mysql reports them")
	return cmd
}
