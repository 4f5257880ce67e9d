package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/getmockd/mysqlmock/pkg/config"
	"github.com/spf13/cobra"
)

type fixtureFlags struct {
	patterns []string
}

func (f *fixtureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.patterns, "fixture", "f", nil, "Fixture file or glob (repeatable, ** supported)")
	_ = cmd.MarkFlagRequired("fixture")
}

// load reads and compiles the fixtures. Schema violations are printed to w
// one per line before the error is returned.
func (f *fixtureFlags) load(w io.Writer) (*config.Fixture, *config.Compiled, error) {
	fx, err := config.LoadGlob(f.patterns...)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Fprintf(w, "  %s\n", fe.Error())
			}
			fmt.Fprintf(w, "hint: %s\n", verr.Hint())
		}
		return nil, nil, err
	}
	c, err := config.Build(fx)
	if err != nil {
		return nil, nil, err
	}
	return fx, c, nil
}
