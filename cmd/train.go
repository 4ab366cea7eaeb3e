package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/tripleminds/intentd/pkg/config"
	"github.com/tripleminds/intentd/pkg/intent"
	"github.com/tripleminds/intentd/pkg/trainer"
)

var trainFlags struct {
	kind        string
	testSize    float64
	seed        int64
	maxFeatures int
	epochs      int
	lr          float64
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the classifier from the intents catalog and write the model artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return runTrain(cfg)
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainFlags.kind, "kind", "logreg", "classifier kind: logreg | linear_svc | sgd")
	trainCmd.Flags().Float64Var(&trainFlags.testSize, "test-size", 0.15, "held-out fraction for evaluation")
	trainCmd.Flags().Int64Var(&trainFlags.seed, "seed", 42, "random seed for split and training")
	trainCmd.Flags().IntVar(&trainFlags.maxFeatures, "max-features", intent.DefaultMaxFeatures, "vocabulary size bound")
	trainCmd.Flags().IntVar(&trainFlags.epochs, "epochs", 0, "training epochs (0 = per-kind default)")
	trainCmd.Flags().Float64Var(&trainFlags.lr, "learning-rate", 0, "learning rate (0 = per-kind default)")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cfg *config.Config) error {
	catalog, err := intent.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load intents catalog: %w", err)
	}

	tc := trainer.Config{
		Kind:         intent.ClassifierKind(trainFlags.kind),
		MaxFeatures:  trainFlags.maxFeatures,
		TestSize:     trainFlags.testSize,
		Seed:         trainFlags.seed,
		Epochs:       trainFlags.epochs,
		LearningRate: trainFlags.lr,
		L2:           1e-4,
	}

	log.Printf("[Train] fitting %s on %d intents from %s",
		tc.Kind, len(catalog.Intents()), cfg.CatalogPath)

	res, err := trainer.Train(catalog, tc)
	if err != nil {
		return err
	}
	fmt.Print(res.Report.String())

	if err := intent.SaveModel(cfg.ModelPath, res.Model); err != nil {
		return err
	}
	log.Printf("[Train] wrote model artifact to %s (%d features, %d classes)",
		cfg.ModelPath, res.Model.Vectorizer.NumFeatures(), len(res.Model.Classifier.Classes))
	return nil
}
