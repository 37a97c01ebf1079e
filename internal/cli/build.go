package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/catalog"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/config"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/observability"
)

func buildCmd() *cobra.Command {
	var (
		out       string
		describer string
		limit     int
		allowGaps bool
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the persona catalog for every profile combination",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out != "" {
				cfg.Catalog.Path = out
			}
			if describer != "" {
				cfg.Catalog.Describer = describer
			}
			if cmd.Flags().Changed("limit") {
				cfg.Catalog.Limit = limit
			}
			if cmd.Flags().Changed("allow-gaps") {
				cfg.Catalog.AllowGaps = allowGaps
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			b := catalog.Builder{
				Describer:   catalog.TemplateDescriber{},
				Concurrency: cfg.Catalog.Concurrency,
				Attempts:    cfg.Catalog.Attempts,
				Backoff:     cfg.Catalog.Backoff,
				AllowGaps:   cfg.Catalog.AllowGaps,
				Limit:       cfg.Catalog.Limit,
				Logger:      observability.Logger(),
			}
			if cfg.Catalog.Describer == config.DescriberModel {
				gen, closer, err := newGenerator(cmd.Context())
				if err != nil {
					return err
				}
				defer closer.Close()
				b.Describer = catalog.ModelDescriber{Generator: gen}
			}

			cat, report, err := b.Build(cmd.Context(), cfg.Schema())
			if err != nil {
				return err
			}
			if err := catalog.Save(cfg.Catalog.Path, cat); err != nil {
				return err
			}

			summary, _ := json.MarshalIndent(report, "", "  ")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d personas to %s\n%s\n", cat.Len(), cfg.Catalog.Path, summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "catalog file to write (default from config)")
	cmd.Flags().StringVar(&describer, "describer", "", "template or model")
	cmd.Flags().IntVar(&limit, "limit", 0, "only describe the first N combinations")
	cmd.Flags().BoolVar(&allowGaps, "allow-gaps", false, "write the catalog even if some combinations failed")
	return cmd
}
