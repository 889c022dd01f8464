package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cropadvisor/services"
)

var modelDir string

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelInitCmd)
	modelCmd.AddCommand(modelInfoCmd)

	modelInitCmd.Flags().StringVar(&modelDir, "dir", "", "output directory (default: model.dir)")
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage classifier artifacts",
}

var modelInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample classifier covering 22 crops",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := modelDir
		if dir == "" {
			dir = loadConfig().ModelDir
		}
		if err := services.WriteSampleArtifacts(dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s, %s and %s to %s\n",
			services.ClassifierFile, services.NormalizationFile, services.LabelsFile, dir)
		return nil
	},
}

var modelInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Load the configured classifier and print its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		predictor, err := services.NewPredictorService(loadConfig().ModelDir)
		if err != nil {
			return err
		}
		for key, value := range predictor.GetStatus() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %v\n", key, value)
		}
		return nil
	},
}
