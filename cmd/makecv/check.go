package main

import (
	"github.com/spf13/cobra"

	"github.com/makecv/makecv/internal/corpus"
	"github.com/makecv/makecv/internal/reference"
)

var checkFlags struct {
	doi   string
	title string
	year  int
	venue string
}

func init() {
	f := checkCmd.Flags()
	f.StringVar(&checkFlags.doi, "doi", "", "DOI of the work")
	f.StringVar(&checkFlags.title, "title", "", "Title of the work")
	f.IntVar(&checkFlags.year, "year", 0, "Publication year")
	f.StringVar(&checkFlags.venue, "venue", "", "Journal or proceedings")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check <bibfile>...",
	Short: "Check whether a work is already in a bibliography",
	Long: `Check whether a work is already in one or more .bib files.

A DOI match wins. Otherwise the normalized title must match and year and
venue must agree wherever both sides have them.

Examples:
  makecv check cv.bib --doi 10.1093/sysbio/syy032
  makecv check cv.bib scholarship_new.bib --title "Deep Trees" --year 2024`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

// CheckResult is the response for the check command.
type CheckResult struct {
	Duplicate          bool     `json:"duplicate"`
	Match              string   `json:"match"`
	Key                string   `json:"key,omitempty"`
	PossiblyMissingDOI bool     `json:"possibly_missing_doi,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFlags.doi == "" && checkFlags.title == "" {
		exitWithError(ExitError, "one of --doi or --title is required")
	}

	idx, err := corpus.Load(args...)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	m := idx.Lookup(reference.Reference{
		DOI:   checkFlags.doi,
		Title: checkFlags.title,
		Year:  checkFlags.year,
		Venue: checkFlags.venue,
	})
	result := CheckResult{
		Duplicate:          m.Duplicate(),
		Match:              m.Kind.String(),
		Key:                m.Key,
		PossiblyMissingDOI: m.PossiblyMissingDOI,
		Warnings:           m.Warnings,
	}

	if !humanOutput {
		return outputJSON(result)
	}

	if result.Duplicate {
		outputHuman("Already present as %s (matched by %s)\n", result.Key, result.Match)
	} else {
		outputHuman("Not found in %d entries\n", idx.Len())
	}
	if result.PossiblyMissingDOI {
		outputHuman("  %s matched by title but does not record %s\n", result.Key, checkFlags.doi)
	}
	for _, w := range result.Warnings {
		outputHuman("  warning: %s\n", w)
	}
	return nil
}
