package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tripleminds/intentd/pkg/config"
	"github.com/tripleminds/intentd/pkg/intent"
)

var chatMode string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the trained model from the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runChat(cmd, cfg)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatMode, "mode", "default", "moderation mode: default | safe | nsfw")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, cfg *config.Config) error {
	switch strings.ToLower(chatMode) {
	case "default", "safe", "nsfw":
	default:
		return fmt.Errorf("unknown mode %q", chatMode)
	}
	mode := intent.ParseMode(chatMode)

	source := intent.FileSource{
		ModelPath:   cfg.ModelPath,
		CatalogPath: cfg.CatalogPath,
	}
	registry := intent.NewRegistry()
	if _, err := registry.Load(source); err != nil {
		return fmt.Errorf("failed to load artifacts (run `intentd train` first): %w", err)
	}

	policy := intent.Policy{
		Threshold:     cfg.ConfidenceThreshold,
		AcceptUnknown: cfg.ConfidenceAcceptUnknown,
	}
	engine := intent.NewEngine(registry, intent.NewBlocklistGate(cfg.Blocklist), policy)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "intentd chat (type quit, exit, or bye to leave)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "bye":
			fmt.Fprintln(out, "bot> Goodbye!")
			return nil
		}

		ex, err := engine.Chat(cmd.Context(), line, mode)
		if err != nil {
			return err
		}
		if conf, ok := ex.Confidence.Value(); ok {
			fmt.Fprintf(out, "bot> %s  [%s %.2f, %s]\n",
				ex.Reply, ex.Intent, conf, ex.Latency)
		} else {
			fmt.Fprintf(out, "bot> %s  [%s]\n", ex.Reply, ex.Latency)
		}
	}
	return scanner.Err()
}
