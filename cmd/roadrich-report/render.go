package main

import (
	"errors"

	"github.com/spf13/cobra"

	"roadrich/internal/cli"
	applog "roadrich/internal/log"
)

func newRenderCmd(f *rootFlags) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a report from a JSON bundle",
		Example: `  roadrich-report render --input march.json --out ./reports
  cat march.json | roadrich-report render --input - --summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.SetupLogger(f.logLevel, applog.ComponentReport)
			if input == "" {
				return errors.New("--input is required")
			}
			in, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			doc, s, err := f.composer().Generate(cmd.Context(), in)
			if err != nil {
				return err
			}
			return f.write(cmd, doc, s)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Report bundle (JSON), - for stdin")
	return cmd
}
