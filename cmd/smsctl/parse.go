package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/smsledger/cmd/smsctl/internal/view"
	"github.com/MrJamesThe3rd/smsledger/internal/importer"
	"github.com/MrJamesThe3rd/smsledger/internal/parser"
	"github.com/MrJamesThe3rd/smsledger/internal/pipeline"
)

type parseOptions struct {
	format        string
	timezone      string
	minConfidence float64
	asJSON        bool
}

func parseCmd() *cobra.Command {
	opts := parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse an SMS backup and list the transactions found",
		Long: `Reads an SMS Backup & Restore XML file, a CSV export or plain text with one
message per paragraph. Reads stdin when no file is given or file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()

			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open backup: %w", err)
				}
				defer f.Close()

				in = f
			}

			return runParse(cmd.OutOrStdout(), in, opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "", "backup format: xml, csv or text (default: detect)")
	cmd.Flags().StringVar(&opts.timezone, "tz", "Asia/Kolkata", "timezone of dates written in messages")
	cmd.Flags().Float64Var(&opts.minConfidence, "min-confidence", pipeline.DefaultMinConfidence, "highlight candidates below this confidence")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print candidates as JSON")

	return cmd
}

func runParse(out io.Writer, in io.Reader, opts parseOptions) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", opts.timezone, err)
	}

	msgs, err := importer.NewService(0).Import(importer.Format(opts.format), in)
	if err != nil {
		return err
	}

	p := parser.New(parser.WithLocation(loc))

	txs := make([]*parser.ParsedTransaction, 0, len(msgs))

	for _, m := range msgs {
		mp := p
		if !m.ReceivedAt.IsZero() {
			mp = p.ReceivedAt(m.ReceivedAt)
		}

		if tx, ok := mp.Parse(m.Body); ok {
			txs = append(txs, tx)
		}
	}

	parser.SortNewestFirst(txs)

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(txs)
	}

	if err := view.RenderTable(out, view.Rows(txs, opts.minConfidence)); err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, "\n"+view.Summary(txs, len(msgs), opts.minConfidence))

	return err
}
