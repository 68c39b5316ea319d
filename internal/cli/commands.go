package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalograg/internal/domain/answer"
	doming "github.com/kailas-cloud/catalograg/internal/domain/ingest"
	"github.com/kailas-cloud/catalograg/internal/usecase/schema"
)

func newIngestCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir|file>",
		Short: "Ingest .csv and .parquet tables into the vector index",
		Long: `Ingest a single table or every .csv/.parquet file in a directory.
A failing table is reported in the summary and does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("stat %s: %w", args[0], err)
			}

			var results []doming.TableResult
			if info.IsDir() {
				results, err = a.Ingest.IngestDirectory(ctx, args[0])
				if err != nil {
					return err
				}
			} else {
				// Per-table failures land in the result and the summary.
				res, _ := a.Ingest.IngestFile(ctx, args[0])
				results = []doming.TableResult{res}
			}

			stats := doming.Summarize(results)
			if opts.output == OutputJSON {
				return opts.printJSON(cmd.OutOrStdout(), stats)
			}
			printIngestSummary(cmd.OutOrStdout(), stats)
			if stats.TotalFilesFailed > 0 && stats.TotalFilesProcessed == 0 {
				return errors.New("no table was ingested")
			}
			return nil
		},
	}
}

func newAskCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a natural-language question about the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query is required")
			}

			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			rec := a.Engine.Answer(ctx, query)
			if opts.output == OutputJSON {
				return opts.printJSON(cmd.OutOrStdout(), rec)
			}
			printAnswer(cmd.OutOrStdout(), rec, opts.verbose)
			if rec.IsError() {
				return errors.New(rec.Error)
			}
			return nil
		},
	}
}

func newSchemaCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <dir|file>",
		Short: "Profile table columns and describe them with the language model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("stat %s: %w", args[0], err)
			}

			var profiles []schema.TableProfile
			if info.IsDir() {
				profiles, err = a.Analyzer.AnalyzeDirectory(ctx, args[0])
			} else {
				var p schema.TableProfile
				p, err = a.Analyzer.AnalyzeFile(ctx, args[0])
				profiles = []schema.TableProfile{p}
			}
			if err != nil {
				return err
			}

			if opts.output == OutputJSON {
				return opts.printJSON(cmd.OutOrStdout(), profiles)
			}
			for _, p := range profiles {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), schema.Summary(p))
			}
			return nil
		},
	}
}

func newStatsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the number of indexed catalog entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Engine.Stats(ctx)
			if err != nil {
				return err
			}
			if opts.output == OutputJSON {
				return opts.printJSON(cmd.OutOrStdout(), stats)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Documents: %d\n", stats.Documents)
			return nil
		},
	}
}

func newResetCommand(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entry from the vector index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the index without --yes")
			}

			ctx := cmd.Context()
			a, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Index.DeleteAll(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Index cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

func printIngestSummary(w io.Writer, stats doming.Statistics) {
	for _, r := range stats.FilesSummary {
		name := r.FileName
		if name == "" {
			name = r.Source
		}
		if r.OK() {
			_, _ = fmt.Fprintf(w, "  ok     %s: %d rows\n", name, r.RowsProcessed)
		} else {
			_, _ = fmt.Fprintf(w, "  error  %s: %s\n", name, r.Error)
		}
	}
	_, _ = fmt.Fprintf(w, "Files: %d ingested, %d failed. Rows: %d. Embeddings: %d.\n",
		stats.TotalFilesProcessed, stats.TotalFilesFailed,
		stats.TotalRowsProcessed, stats.TotalEmbeddingsGenerated)
}

func printAnswer(w io.Writer, rec answer.Record, verbose bool) {
	_, _ = fmt.Fprintln(w, rec.Response)
	if !verbose {
		return
	}
	_, _ = fmt.Fprintf(w, "\nProducts found: %d\n", rec.ProductsFound)
	for _, p := range rec.Products {
		_, _ = fmt.Fprintf(w, "  %.4f  %s\n", p.Distance, p.Name)
	}
	if len(rec.Degradations) > 0 {
		_, _ = fmt.Fprintf(w, "Degradations: %v\n", rec.Degradations)
	}
}
