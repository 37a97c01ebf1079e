package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func matchCmd() *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show the persona a store profile matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.profile(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			res, err := cat.Match(p)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(res, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	pf.register(cmd)
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the profile fields and their allowed values",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema := cfg.Schema()
			w := cmd.OutOrStdout()
			for _, f := range schema.Fields() {
				fmt.Fprintf(w, "%s:\n", f.Name)
				for _, o := range f.Options {
					fmt.Fprintf(w, "  %-16s %s\n", o.Value, o.Label)
				}
			}
			fmt.Fprintf(w, "\n%d combinations\n", schema.Size())
			return nil
		},
	}
}
