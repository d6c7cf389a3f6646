package main

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/route-cli/internal/pipeline"
)

var codesManifest string

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the category codes found in a manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("codes"); err != nil {
			return err
		}

		extractor, err := pipeline.NewExtractor(cfg.Pipeline)
		if err != nil {
			return err
		}
		p := pipeline.New(extractor, nil, nil, cfg.Pipeline.DefaultOrigin())

		lines, err := readManifest(cmd.Context(), cfg.OCR, codesManifest)
		if err != nil {
			return err
		}

		codes, counts, err := p.Codes(lines)
		if errors.Is(err, pipeline.ErrEmptyParse) {
			return eris.New(outcomeMessage(pipeline.OutcomeEmptyParse))
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, c := range codes {
			fmt.Fprintf(out, "%s\t%d\n", c, counts[c])
		}
		return nil
	},
}

func init() {
	codesCmd.Flags().StringVar(&codesManifest, "manifest", "", "manifest file (PDF, text or XLSX)")
	_ = codesCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(codesCmd)
}
