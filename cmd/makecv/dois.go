package main

import (
	"github.com/spf13/cobra"

	"github.com/makecv/makecv/internal/bibtex"
	"github.com/makecv/makecv/internal/doisearch"
)

var doisNoCache bool

func init() {
	doisCmd.Flags().BoolVar(&doisNoCache, "no-cache", false, "Do not read or write the response cache")
	rootCmd.AddCommand(doisCmd)
}

var doisCmd = &cobra.Command{
	Use:   "dois <bibfile>",
	Short: "Suggest DOIs for entries that lack one",
	Long: `Look up every entry without a DOI on Crossref and report the DOI of a
work whose title (and year, when known) matches exactly.

The bibliography is not modified; add the suggested DOIs by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: runDOIs,
}

func runDOIs(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	logger := newLogger(cfg)

	entries, err := bibtex.ParseFile(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	c := openClients(cfg, !doisNoCache, nil, logger)
	defer c.Close()

	res, err := doisearch.New(c.crossref(cfg.CrossrefMailto), logger).Find(cmd.Context(), entries)
	if err != nil {
		return err
	}

	if !humanOutput {
		return outputJSON(res)
	}

	outputHuman("Checked %d entries without a DOI\n", res.Checked)
	for _, s := range res.Suggestions {
		outputHuman("  %-24s %s\n", s.Key, s.DOI)
		outputHuman("  %-24s %s\n", "", truncateString(s.Title, TitleMaxLen))
	}
	if len(res.Failed) > 0 {
		outputHuman("Lookup failed for %d entries; run again later\n", len(res.Failed))
	}
	return nil
}
