package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/advisory"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/tui"
)

func chatCmd() *cobra.Command {
	var pf profileFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the advisor in the terminal",
		Example: `  advisor chat --category cafe --new-store --size small --age-band 20s --segment students
  advisor chat --name "Twosome Place Jamsil" --about "opened 3 months ago, lots of office workers" --size medium --age-band 30s_40s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pf.profile(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			gen, closer, err := newGenerator(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			advisor, err := newAdvisor(cat, gen, advisory.NopRecorder{})
			if err != nil {
				return err
			}
			s := advisor.NewSession()
			if _, err := s.SubmitProfile(cmd.Context(), p); err != nil {
				return err
			}
			return tui.Run(cmd.Context(), s)
		},
	}
	pf.register(cmd)
	return cmd
}

func archiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <session-id>",
		Short: "Print the exchanges archived in Redis for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newRedisClient()
			defer client.Close()
			rec := advisory.NewRedisRecorder(client, cfg.Redis.Prefix, cfg.Redis.TTL)
			exchanges, err := rec.Exchanges(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(exchanges) == 0 {
				return fmt.Errorf("no archived exchanges for session %s", args[0])
			}
			out, _ := json.MarshalIndent(exchanges, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
