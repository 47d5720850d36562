package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/loader"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/schema"
	"github.com/sells-group/recon-cli/internal/validate"
)

// validateFlags are the inputs of one CLI validation.
type validateFlags struct {
	gold      string
	growth    string
	mapping   string
	threshold float64
	output    string
	exportCSV string
	noSave    bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Reconcile a gold and growth file and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("validate"); err != nil {
			return err
		}

		f := validateFlags{threshold: cfg.Validation.Threshold}
		f.gold, _ = cmd.Flags().GetString("gold")
		f.growth, _ = cmd.Flags().GetString("growth")
		f.mapping, _ = cmd.Flags().GetString("mapping")
		f.output, _ = cmd.Flags().GetString("output")
		f.exportCSV, _ = cmd.Flags().GetString("export-csv")
		f.noSave, _ = cmd.Flags().GetBool("no-save")
		if cmd.Flags().Changed("threshold") {
			f.threshold, _ = cmd.Flags().GetFloat64("threshold")
		}

		sess, err := runValidation(ctx, f)
		if err != nil {
			return err
		}
		formatSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

func init() {
	validateCmd.Flags().String("gold", "", "path to the gold extract (csv or xlsx)")
	validateCmd.Flags().String("growth", "", "path to the growth extract (csv or xlsx)")
	validateCmd.Flags().String("mapping", "", "YAML mapping file (default: use suggested mapping)")
	validateCmd.Flags().Float64("threshold", 3, "percent tolerance for a metric match (default from config)")
	validateCmd.Flags().String("output", "", "write the full session JSON to this file")
	validateCmd.Flags().String("export-csv", "", "write the comparison rows as CSV to this file")
	validateCmd.Flags().Bool("no-save", false, "do not store the session")
	_ = validateCmd.MarkFlagRequired("gold")
	_ = validateCmd.MarkFlagRequired("growth")
	rootCmd.AddCommand(validateCmd)
}

// runValidation loads both files, resolves the mapping, runs the pipeline
// and persists or writes the session as requested.
func runValidation(ctx context.Context, f validateFlags) (*model.Session, error) {
	lopts := loaderOptions()
	var gold, growth model.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gold, err = loader.Load(gctx, f.gold, lopts)
		return err
	})
	g.Go(func() error {
		var err error
		growth, err = loader.Load(gctx, f.growth, lopts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var mapping model.FieldMapping
	if f.mapping != "" {
		m, err := model.LoadMappingFile(f.mapping)
		if err != nil {
			return nil, err
		}
		mapping = m
	} else {
		p := schema.PreviewColumns(gold, growth, schemaOptions())
		if !p.AutoMatched() {
			zap.L().Warn("using suggested mapping below the auto-match cutover; review with `recon preview`")
		}
		mapping = p.Mapping()
	}

	sess, err := validate.Run(ctx, validate.Request{
		Gold:        gold,
		Growth:      growth,
		Mapping:     mapping,
		Threshold:   f.threshold,
		Rules:       cfg.RootCause,
		MaxParallel: cfg.Validation.MaxParallel,
	})
	if err != nil {
		return nil, err
	}

	if f.output != "" {
		if err := writeSessionJSON(f.output, sess); err != nil {
			return nil, err
		}
	}
	if f.exportCSV != "" {
		if err := writeComparisonCSV(f.exportCSV, sess); err != nil {
			return nil, err
		}
	}
	if !f.noSave {
		if err := saveSession(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func saveSession(ctx context.Context, sess *model.Session) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.SaveSession(ctx, sess); err != nil {
		return eris.Wrap(err, "validate: save session")
	}
	if ttl := sessionTTL(); ttl > 0 {
		n, err := st.DeleteExpired(ctx, ttl)
		if err != nil {
			zap.L().Warn("validate: purge expired sessions", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("purged expired sessions", zap.Int("count", n))
		}
	}
	return nil
}

func writeSessionJSON(path string, sess *model.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return eris.Wrap(err, "validate: marshal session")
	}
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "validate: write %s", path)
}

func writeComparisonCSV(path string, sess *model.Session) error {
	fh, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "validate: create %s", path)
	}
	if err := export.ComparisonCSV(fh, sess); err != nil {
		fh.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(fh.Close(), "validate: close %s", path)
}

// formatSession writes the human-readable session summary to out.
func formatSession(out io.Writer, sess *model.Session) {
	sum := sess.Summary
	_, _ = fmt.Fprintf(out, "Session:    %s\n", sess.ID)
	_, _ = fmt.Fprintf(out, "Files:      %s (gold) vs %s (growth)\n", sess.GoldFile, sess.GrowthFile)
	_, _ = fmt.Fprintf(out, "Threshold:  %.2f%%\n", sess.Threshold)
	_, _ = fmt.Fprintf(out, "Match rate: %.2f%% (%d/%d rows, %d/%d segments passing)\n\n",
		sum.OverallMatchRate, sum.PassingRows, sum.TotalRows, sum.PassingSegments, sum.TotalSegments)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEGMENT\tMATCH\tROWS")
	for _, d := range sum.Details {
		_, _ = fmt.Fprintf(w, "%s\t%.2f%%\t%d/%d\n", d.SegmentName, d.PercentRounded(), d.PassingRows, d.TotalRows)
	}
	_ = w.Flush()

	if len(sess.SkippedSegments) > 0 {
		_, _ = fmt.Fprintf(out, "\nSkipped (dimension not mapped): %v\n", sess.SkippedSegments)
	}

	if len(sess.Findings) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo root causes identified.")
		return
	}
	_, _ = fmt.Fprintln(out, "\nRoot causes:")
	for i, f := range sess.Findings {
		_, _ = fmt.Fprintf(out, "  %d. [%s %.0f%%] %s\n", i+1, f.Kind, f.Confidence*100, f.Description)
		if i < len(sess.Fixes) {
			_, _ = fmt.Fprintf(out, "     fix: %s\n", sess.Fixes[i].Narrative)
		}
	}
}
