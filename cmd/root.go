// Package cmd holds the intentd command tree.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "intentd",
	Short: "TF-IDF intent classification chat service",
	Long: `intentd trains and serves a lightweight conversational intent engine:
messages are moderated, classified against a trained intents catalog, and
answered from the catalog's authored responses, with a fallback reply when
the classifier is not confident enough.`,
	SilenceUsage: true,
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
}
