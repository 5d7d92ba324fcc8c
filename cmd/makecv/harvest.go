package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/makecv/makecv/internal/approval"
	"github.com/makecv/makecv/internal/citekey"
	"github.com/makecv/makecv/internal/complete"
	"github.com/makecv/makecv/internal/config"
	"github.com/makecv/makecv/internal/corpus"
	"github.com/makecv/makecv/internal/merge"
	"github.com/makecv/makecv/internal/observability"
	"github.com/makecv/makecv/internal/pipeline"
	"github.com/makecv/makecv/internal/sources"
	"github.com/makecv/makecv/internal/sources/crossref"
	"github.com/makecv/makecv/internal/sources/orcid"
	"github.com/makecv/makecv/internal/sources/patents"
	"github.com/makecv/makecv/internal/sources/pdfdir"
	"github.com/makecv/makecv/internal/sources/scopus"
	"github.com/makecv/makecv/internal/sources/semanticscholar"
)

var harvestFlags struct {
	orcid         string
	crossrefORCID bool
	scopus        string
	patents       string
	s2            string
	pdfDir        string
	years         int
	output        string
	quiet         bool
	metricsFile   string
	noCache       bool
}

func init() {
	f := harvestCmd.Flags()
	f.StringVar(&harvestFlags.orcid, "orcid", "", "ORCID iD to harvest")
	f.BoolVar(&harvestFlags.crossrefORCID, "crossref-orcid", false, "Also search Crossref for works tagged with the ORCID iD")
	f.StringVar(&harvestFlags.scopus, "scopus", "", "Scopus author ID to harvest")
	f.StringVar(&harvestFlags.patents, "patents", "", "Comma-separated patent and application numbers")
	f.StringVar(&harvestFlags.s2, "s2", "", "Semantic Scholar author ID to harvest")
	f.StringVar(&harvestFlags.pdfDir, "pdf-dir", "", "Directory of PDFs to harvest")
	f.IntVarP(&harvestFlags.years, "years", "y", config.DefaultLookbackYears, "Lookback window in years (0 for no limit)")
	f.StringVarP(&harvestFlags.output, "output", "o", config.DefaultOutput, "File to append accepted entries to")
	f.BoolVarP(&harvestFlags.quiet, "quiet", "q", false, "Accept every entry without prompting")
	f.StringVar(&harvestFlags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	f.BoolVar(&harvestFlags.noCache, "no-cache", false, "Do not read or write the response cache")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest <bibfile>",
	Short: "Find new works and append approved entries",
	Long: `Harvest works from every configured source, skip those already in
<bibfile> or the output file, and propose the rest one at a time.

Accepted entries are appended to the output file (default
scholarship_new.bib). The bibliography itself is never modified.

Examples:
  makecv harvest cv.bib --orcid 0000-0002-1825-0097
  makecv harvest cv.bib --orcid 0000-0002-1825-0097 --scopus 7004212771 -y 2
  makecv harvest cv.bib --pdf-dir ~/papers/2024 -q`,
	Args: cobra.ExactArgs(1),
	RunE: runHarvest,
}

// applyHarvestFlags overrides config values with flags the user set.
func applyHarvestFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("orcid") {
		cfg.ORCID = harvestFlags.orcid
	}
	if f.Changed("crossref-orcid") {
		cfg.CrossrefORCID = harvestFlags.crossrefORCID
	}
	if f.Changed("scopus") {
		cfg.ScopusID = harvestFlags.scopus
	}
	if f.Changed("patents") {
		cfg.Patents = harvestFlags.patents
	}
	if f.Changed("s2") {
		cfg.S2AuthorID = harvestFlags.s2
	}
	if f.Changed("pdf-dir") {
		cfg.PDFDir = config.ExpandTilde(harvestFlags.pdfDir)
	}
	if f.Changed("years") {
		cfg.LookbackYears = harvestFlags.years
	}
	if f.Changed("output") {
		cfg.Output = harvestFlags.output
	}
	if f.Changed("quiet") {
		cfg.Quiet = harvestFlags.quiet
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = harvestFlags.metricsFile
	}
}

// buildRuns creates a run for every source with a configured profile, in
// a fixed order.
func buildRuns(cfg *config.Config, c *clients, cr *crossref.Client) []pipeline.SourceRun {
	var runs []pipeline.SourceRun
	add := func(src sources.Source, id string) {
		runs = append(runs, pipeline.SourceRun{
			Source: src,
			Query:  sources.Query{ID: id, Lookback: cfg.LookbackYears},
		})
	}

	if cfg.ORCID != "" {
		add(orcid.New(orcid.WithHTTPConfig(c.httpConfig(orcid.RateLimit))), cfg.ORCID)
		if cfg.CrossrefORCID {
			add(crossref.NewSource(cr), cfg.ORCID)
		}
	}
	if cfg.ScopusID != "" {
		add(scopus.New(cfg.ScopusAPIKey, scopus.WithHTTPConfig(c.httpConfig(scopus.RateLimit))), cfg.ScopusID)
	}
	if cfg.Patents != "" {
		add(patents.New(cfg.PatentsViewAPIKey, patents.WithHTTPConfig(c.httpConfig(patents.RateLimit))), cfg.Patents)
	}
	if cfg.S2AuthorID != "" {
		add(semanticscholar.New(cfg.S2APIKey, semanticscholar.WithHTTPConfig(c.httpConfig(semanticscholar.RateLimit))), cfg.S2AuthorID)
	}
	if cfg.PDFDir != "" {
		add(pdfdir.New(nil), cfg.PDFDir)
	}
	return runs
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	bibPath := args[0]

	cfg := mustLoadConfig()
	applyHarvestFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	runID := observability.NewRunID()
	logger := newLogger(cfg)
	metrics := observability.NewMetrics()

	c := openClients(cfg, !harvestFlags.noCache, metrics, observability.WithRun(logger, runID))
	defer c.Close()
	cr := c.crossref(cfg.CrossrefMailto)

	runs := buildRuns(cfg, c, cr)
	if len(runs) == 0 {
		exitWithError(ExitConfigError, "no sources configured\n\nSet orcid, scopus_id, patents, s2_author_id or pdf_dir in %s, or pass the matching flag.", config.GlobalConfigPath())
	}

	idx, err := corpus.Load(bibPath, cfg.Output)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	keys := citekey.NewRegistry(idx.Keys()...)

	console := approval.NewConsole(cmd.InOrStdin(), cmd.ErrOrStderr())
	p := &pipeline.Pipeline{
		Index:     idx,
		Keys:      keys,
		Merger:    merge.New(cr, keys),
		Completer: complete.NewCrossref(cr),
		Gate:      approval.NewGate(console, approval.FileSink{Path: cfg.Output}, cfg.Quiet).WithLogger(logger),
		Logger:    logger,
		Metrics:   metrics,
		RunID:     runID,
	}

	start := time.Now()
	report, runErr := p.Run(ctx, runs)
	metrics.ObserveRun(time.Since(start).Seconds())

	if cfg.MetricsFile != "" {
		if err := metrics.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Msg("metrics not written")
		}
	}

	if humanOutput {
		printReportHuman(report, cfg.Output)
	} else {
		outputJSON(report)
	}

	return harvestError(runErr, cfg.Output)
}

// harvestError turns a pipeline abort into a command error that exits with
// ExitAborted.
func harvestError(runErr error, output string) error {
	if runErr == nil {
		return nil
	}
	if errors.Is(runErr, context.Canceled) {
		return withExitCode(ExitAborted, fmt.Errorf("interrupted; entries accepted so far are in %s: %w", output, runErr))
	}
	return withExitCode(ExitAborted, fmt.Errorf("run aborted: %w", runErr))
}

func printReportHuman(r *pipeline.Report, output string) {
	outputHuman("%-10s %7s %7s %7s %7s %7s %7s %7s\n", "SOURCE", "FETCHED", "OLD", "DUP", "FLAGGED", "ADDED", "DECLINED", "FAILED")
	for _, s := range r.Sources {
		outputHuman("%-10s %7d %7d %7d %7d %7d %7d %7d\n", s.Source, s.Fetched, s.OutOfWindow+s.Undated, s.Duplicate, s.Flagged, s.Accepted, s.Rejected, s.Failed+s.Discarded)
		if s.Error != "" {
			outputHuman("  error: %s\n", s.Error)
		}
	}

	if len(r.Accepted) > 0 {
		outputHuman("\nAppended %d entries to %s:\n", len(r.Accepted), output)
		for _, k := range r.Accepted {
			outputHuman("  %s\n", k)
		}
	} else {
		outputHuman("\nNo new entries.\n")
	}

	if len(r.Flagged) > 0 {
		outputHuman("\nCorpus entries that may be missing a DOI:\n")
		for _, f := range r.Flagged {
			outputHuman("  %s: %s (%s)\n", f.CorpusKey, f.DOI, truncateString(f.Title, TitleMaxLen))
		}
	}
}
