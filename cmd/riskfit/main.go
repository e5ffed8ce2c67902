package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bayesrisk/adapters/ingest"
	"bayesrisk/app"
	"bayesrisk/domain/dataset"
	"bayesrisk/internal/config"
	"bayesrisk/internal/logging"
)

func main() {
	rootCmd := newRunCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var trainFile, validationFile, outputDir string

	cmd := &cobra.Command{
		Use:   "riskfit",
		Short: "Fit and evaluate the Bayesian logistic risk model",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Environment carries the full configuration surface;
			// flags override the file paths only.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if trainFile != "" {
				cfg.Paths.TrainFile = trainFile
			}
			if validationFile != "" {
				cfg.Paths.ValidationFile = validationFile
			}
			if outputDir != "" {
				cfg.Paths.OutputDir = outputDir
			}
			if cfg.Paths.TrainFile == "" {
				return fmt.Errorf("no training dataset: set TRAIN_FILE or pass --train")
			}

			log := logging.NewDefaultLogger()
			schema := dataset.DefaultSchema()

			train, err := loadDataset(cfg.Paths.TrainFile, schema)
			if err != nil {
				return err
			}
			var validation *dataset.Dataset
			if cfg.Paths.ValidationFile != "" {
				validation, err = loadDataset(cfg.Paths.ValidationFile, schema)
				if err != nil {
					return err
				}
			}

			pipeline := app.NewPipeline(cfg, log)
			result, err := pipeline.Run(context.Background(), train, validation)
			if err != nil {
				return err
			}
			if err := app.WriteArtifacts(result, cfg.Paths.OutputDir); err != nil {
				return err
			}

			log.Info("run %s complete: max Rhat %.4f, AUC peak %.4f, artifacts in %s",
				result.RunID, result.Convergence.MaxRhat(), result.AUC.Peak, cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&trainFile, "train", "", "training dataset (csv or xlsx)")
	cmd.Flags().StringVar(&validationFile, "validation", "", "external validation dataset")
	cmd.Flags().StringVar(&outputDir, "out", "", "artifact output directory")
	return cmd
}

func loadDataset(path string, schema dataset.Schema) (*dataset.Dataset, error) {
	table, err := ingest.NewDataReader(path).ReadTable()
	if err != nil {
		return nil, err
	}
	return dataset.ValidateTable(table, schema)
}
