package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/session"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Print the next practice queue for a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		user, _ := cmd.Flags().GetString("user")
		size, _ := cmd.Flags().GetInt("size")
		domains, _ := cmd.Flags().GetStringSlice("domain")
		if size == 0 {
			size = d.cfg.Engine.DefaultTargetSize
		}
		req := session.QueueRequest{UserID: user, TargetSize: size, Domains: domains}
		if cmd.Flags().Changed("weak-ratio") {
			r, _ := cmd.Flags().GetFloat64("weak-ratio")
			req.WeakRatio = &r
		}

		q, err := d.svc.GetSessionQueue(cmd.Context(), req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, e := range q.Entries {
			fmt.Fprintf(out, "%3d  %-6s  %s\n", i+1, e.Source, e.ItemID)
		}
		fmt.Fprintf(out, "\n%d items\n", len(q.Entries))
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Grade an answer and reschedule the item",
	Example: `  examcore submit --user alice --item vpc-1 --answer '{"kind":"single_select","choice":"b"}'
  examcore submit --user alice --item calc-3 --answer '{"kind":"numeric","value":42}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		user, _ := cmd.Flags().GetString("user")
		item, _ := cmd.Flags().GetString("item")
		raw, _ := cmd.Flags().GetString("answer")

		answer, err := grading.ParseAnswer([]byte(raw))
		if err != nil {
			return err
		}
		res, err := d.svc.SubmitAttempt(cmd.Context(), session.Attempt{UserID: user, ItemID: item, Answer: answer})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(out, res)
		}
		fmt.Fprintf(out, "Score:    %.2f (%g/%g points)\n", res.Score, res.PointsEarned, res.PointsPossible)
		fmt.Fprintf(out, "Quality:  %d\n", res.Quality)
		fmt.Fprintf(out, "Next due: %s (in %d days)\n", res.NextDueAt.Format("2006-01-02 15:04"), res.Review.IntervalDays)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show a learner's mastery by domain",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		user, _ := cmd.Flags().GetString("user")
		report, err := d.svc.GetMasteryReport(cmd.Context(), user)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(report.Domains) == 0 {
			fmt.Fprintln(out, "No attempts recorded yet.")
			return nil
		}
		fmt.Fprintf(out, "%-30s  %8s  %8s\n", "Domain", "Accuracy", "Attempts")
		fmt.Fprintln(out, strings.Repeat("─", 50))
		for _, row := range report.Domains {
			acc := "-"
			if row.Known {
				acc = fmt.Sprintf("%.0f%%", row.Accuracy*100)
			}
			fmt.Fprintf(out, "%-30s  %8s  %8d\n", row.Tag, acc, row.Attempts)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List a learner's most recent attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		recent, err := d.svc.RecentAttempts(cmd.Context(), user, limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, a := range recent {
			fmt.Fprintf(out, "%s  %-30s  %.2f  q%d\n", a.SubmittedAt.Local().Format("2006-01-02 15:04"), a.ItemID, a.Score, a.Quality)
		}
		return nil
	},
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{queueCmd, submitCmd, reportCmd, historyCmd} {
		c.Flags().String("user", "", "Learner ID")
		_ = c.MarkFlagRequired("user")
	}

	queueCmd.Flags().Int("size", 0, "Queue size (default: engine.default_target_size)")
	queueCmd.Flags().Float64("weak-ratio", 0, "Share of the queue reserved for weak domains (default: engine.weak_ratio)")
	queueCmd.Flags().StringSlice("domain", nil, "Only consider items with these domain tags")

	submitCmd.Flags().String("item", "", "Item ID")
	submitCmd.Flags().String("answer", "", "Answer payload as JSON")
	submitCmd.Flags().Bool("json", false, "Print the full result as JSON")
	_ = submitCmd.MarkFlagRequired("item")
	_ = submitCmd.MarkFlagRequired("answer")

	historyCmd.Flags().Int("limit", 20, "Number of attempts to show")
}
