package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/recon-cli/internal/summarize"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <session-id>",
	Short: "Narrate a stored session, or answer a question about it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("summarize"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess, err := st.GetSession(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "summarize")
		}

		sum, err := summarize.New(ctx, cfg)
		if err != nil {
			return err
		}

		question, _ := cmd.Flags().GetString("question")
		refresh, _ := cmd.Flags().GetBool("refresh")

		var text string
		if question != "" {
			text, err = sum.Answer(ctx, question, summarize.BuildInput(sess))
		} else {
			text, err = summarize.Insight(ctx, st, sum, sess, refresh)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	summarizeCmd.Flags().String("question", "", "ask a question about the session instead of summarizing it")
	summarizeCmd.Flags().Bool("refresh", false, "regenerate the stored summary")
	rootCmd.AddCommand(summarizeCmd)
}
