package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and maintain stored validation sessions",
}

// -- sessions list --

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		gold, _ := cmd.Flags().GetString("gold")
		since, _ := cmd.Flags().GetDuration("since")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.SessionFilter{GoldFile: gold, Limit: limit}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		infos, err := st.ListSessions(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}
		if len(infos) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No sessions found.")
			return nil
		}
		formatSessionsList(cmd.OutOrStdout(), infos)
		return nil
	},
}

// -- sessions show --

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess, err := st.GetSession(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "sessions show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sess)
		}
		formatSession(cmd.OutOrStdout(), sess)
		return nil
	},
}

// -- sessions purge --

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete sessions older than the configured TTL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ttl := sessionTTL()
		if cmd.Flags().Changed("older-than") {
			ttl, _ = cmd.Flags().GetDuration("older-than")
		}
		if ttl <= 0 {
			return eris.New("sessions purge: ttl must be positive")
		}

		n, err := st.DeleteExpired(ctx, ttl)
		if err != nil {
			return eris.Wrap(err, "sessions purge")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d session(s) older than %s.\n", n, ttl)
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().String("gold", "", "filter by gold file name")
	sessionsListCmd.Flags().Duration("since", 0, "only sessions created within this window (e.g. 24h)")
	sessionsListCmd.Flags().Int("limit", 50, "max number of sessions to display")

	sessionsShowCmd.Flags().Bool("json", false, "print the full session as JSON")

	sessionsPurgeCmd.Flags().Duration("older-than", 0, "override the configured session TTL")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// formatSessionsList writes a tabular list of sessions to out.
func formatSessionsList(out io.Writer, infos []model.SessionInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tGOLD\tGROWTH\tMATCH\tFINDINGS\tCREATED")
	for _, s := range infos {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f%%\t%d\t%s\n",
			s.ID, s.GoldFile, s.GrowthFile, s.OverallMatchRate, s.Findings,
			s.CreatedAt.UTC().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

