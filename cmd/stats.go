package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripleminds/intentd/pkg/config"
)

var statsRecent int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print conversation log aggregates",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runStats(cmd, cfg)
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsRecent, "recent", 10, "number of recent chats to show")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, cfg *config.Config) error {
	chatLog, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = chatLog.Close() }()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	counts, err := chatLog.CountsByIntent(ctx)
	if err != nil {
		return err
	}
	avg, err := chatLog.AvgLatencyMs(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "avg latency: %.1f ms\n", avg)
	fmt.Fprintln(out, "chats by intent:")
	for _, c := range counts {
		fmt.Fprintf(out, "  %-20s %d\n", c.Intent, c.Count)
	}

	recent, err := chatLog.RecentChats(ctx, statsRecent)
	if err != nil {
		return err
	}
	if len(recent) > 0 {
		fmt.Fprintln(out, "recent chats:")
		for _, rec := range recent {
			conf := "-"
			if rec.Confidence != nil {
				conf = fmt.Sprintf("%.2f", *rec.Confidence)
			}
			fmt.Fprintf(out, "  [%s] %q -> %q (intent=%s conf=%s)\n",
				rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Message, rec.Reply, rec.Intent, conf)
		}
	}
	return nil
}
