package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"roadrich/internal/core"
	"roadrich/internal/report"
)

type rootFlags struct {
	outDir   string
	fontDir  string
	prefix   string
	url      string
	logLevel string
	summary  bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "roadrich-report",
		Short:         "Render RoadRich monthly reports",
		Long:          "Render the one-page RoadRich monthly PDF report from a JSON bundle or from stored data.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.outDir, "out", "o", ".", "Directory the PDF is written to")
	pf.StringVar(&f.fontDir, "font-dir", os.Getenv("REPORT_FONT_DIR"), "Directory holding DejaVuSans.ttf and DejaVuSans-Bold.ttf (core font when empty)")
	pf.StringVar(&f.prefix, "prefix", envOr("REPORT_FILE_PREFIX", report.DefaultFilePrefix), "File name prefix")
	pf.StringVar(&f.url, "url", envOr("REPORT_PRODUCT_URL", report.DefaultProductURL), "Product URL printed in the footer")
	pf.StringVar(&f.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level")
	pf.BoolVar(&f.summary, "summary", false, "Print the computed summary as JSON on stdout")

	root.AddCommand(newRenderCmd(f), newMonthlyCmd(f))
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (f *rootFlags) composer() *report.Composer {
	opts := report.DefaultOptions()
	opts.FilePrefix = f.prefix
	opts.ProductURL = f.url
	return report.NewComposer(report.NewBackend(f.fontDir), opts)
}

// write saves doc under the output directory and reports what was written.
func (f *rootFlags) write(cmd *cobra.Command, doc report.Document, s report.Summary) error {
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(f.outDir, doc.Filename)
	if err := os.WriteFile(path, doc.Bytes, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if f.summary {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  (%d bytes, total %s)\n",
		s.MonthName, path, len(doc.Bytes), core.FormatCurrency(s.TotalExpenses))
	return nil
}

// readInput decodes a report bundle from path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (report.Input, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		file, err := os.Open(path)
		if err != nil {
			return report.Input{}, fmt.Errorf("open input: %w", err)
		}
		defer file.Close()
		r = file
	}

	var in report.Input
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return report.Input{}, fmt.Errorf("decode input %s: %w", path, err)
	}
	return in, nil
}
