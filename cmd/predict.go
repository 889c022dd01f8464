package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cropadvisor/models"
)

var (
	predictState    string
	predictDistrict string
	predictMonth    string
	predictLang     string
	predictAuto     bool
)

// soil flags, in flag order
var soilFlags = []string{"nitrogen", "phosphorous", "potassium", "ph"}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVar(&predictState, "state", "", "state, e.g. MAHARASHTRA (required)")
	predictCmd.Flags().StringVar(&predictDistrict, "district", "", "district, e.g. PUNE (required)")
	predictCmd.Flags().StringVar(&predictMonth, "month", "", "month code JAN..DEC (required)")
	predictCmd.Flags().StringVar(&predictLang, "lang", "en", "advisory language: en, hi or mr")
	predictCmd.Flags().BoolVar(&predictAuto, "auto", true, "fill missing soil values from district defaults")
	predictCmd.Flags().Float64("nitrogen", 0, "soil nitrogen, 0-140")
	predictCmd.Flags().Float64("phosphorous", 0, "soil phosphorous, 0-145")
	predictCmd.Flags().Float64("potassium", 0, "soil potassium, 0-205")
	predictCmd.Flags().Float64("ph", 0, "soil pH, 0-14")

	predictCmd.MarkFlagRequired("state")
	predictCmd.MarkFlagRequired("district")
	predictCmd.MarkFlagRequired("month")
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one crop advisory and print it as JSON",
	Long: `Run the full advisory pipeline once: soil defaults, live weather, rainfall,
classifier ranking, risk and advisory text.

Examples:
  cropadvisor predict --state MAHARASHTRA --district PUNE --month JUN
  cropadvisor predict --state PUNJAB --district LUDHIANA --month NOV --nitrogen 90 --ph 7.1 --lang hi
  cropadvisor predict --state KARNATAKA --district MYSORE --month OCT --auto=false \
    --nitrogen 80 --phosphorous 40 --potassium 30 --ph 6.8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), loadConfig(), appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		req := models.PredictRequest{
			State:         predictState,
			District:      predictDistrict,
			Month:         predictMonth,
			Language:      predictLang,
			UseAutoValues: &predictAuto,
		}
		values := make(map[string]*float64, len(soilFlags))
		for _, name := range soilFlags {
			if !cmd.Flags().Changed(name) {
				continue
			}
			v, err := cmd.Flags().GetFloat64(name)
			if err != nil {
				return err
			}
			values[name] = &v
		}
		req.Nitrogen = values["nitrogen"]
		req.Phosphorous = values["phosphorous"]
		req.Potassium = values["potassium"]
		req.PH = values["ph"]

		resp, err := a.pipeline.Run(cmd.Context(), req)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
