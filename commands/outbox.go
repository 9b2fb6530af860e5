package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/DelightGeorge/Ikeya-Backend/outbox"
	"github.com/spf13/cobra"
)

var failedLimit int

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and retry queued emails",
}

var outboxStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show message counts per status and the latest failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		counts, err := outbox.Counts(db)
		if err != nil {
			return err
		}
		section(out, "Outbox")
		if len(counts) == 0 {
			muted(out, "No messages queued yet")
			return nil
		}
		for _, c := range counts {
			fmt.Fprintf(out, "%s %-8s %d\n", statusIcon(string(c.Status)), c.Status, c.Count)
		}

		failed, err := outbox.Failed(db, failedLimit)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			return nil
		}

		section(out, "Recent failures")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tRECIPIENT\tATTEMPTS\tLAST ERROR")
		fmt.Fprintln(w, "--\t----\t---------\t--------\t----------")
		for _, m := range failed {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", m.ID, m.Kind, m.Recipient, m.Attempts, m.LastError)
		}
		return w.Flush()
	},
}

var outboxRetryCmd = &cobra.Command{
	Use:   "retry [id...]",
	Short: "Re-queue FAILED messages (all of them when no ids are given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]uint, 0, len(args))
		for _, arg := range args {
			id, err := strconv.ParseUint(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q", arg)
			}
			ids = append(ids, uint(id))
		}

		_, db, err := bootstrap()
		if err != nil {
			return err
		}
		n, err := outbox.Requeue(db, ids...)
		if err != nil {
			return err
		}
		if n == 0 {
			warning(cmd.OutOrStdout(), "No failed messages matched")
			return nil
		}
		success(cmd.OutOrStdout(), "Re-queued %d message(s); a running server will pick them up", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outboxCmd)
	outboxCmd.AddCommand(outboxStatusCmd, outboxRetryCmd)
	outboxStatusCmd.Flags().IntVar(&failedLimit, "limit", 20, "Failed messages to list")
}
