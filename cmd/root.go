package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cropadvisor/utils"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cropadvisor",
	Short: "Crop recommendation and advisory service",
	Long: `cropadvisor recommends crops for an Indian district and month from soil
nutrients, live weather and historical rainfall, and explains the choice with a
risk level and a short advisory in English, Hindi or Marathi.

It serves a JSON API, a guided chatbot (web and Discord) and one-shot CLI runs.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cropadvisor.yaml)")
	rootCmd.PersistentFlags().String("model-dir", "", "directory with classifier.json, normalization.json and labels.json")
	rootCmd.PersistentFlags().String("rainfall", "", "district rainfall CSV")
	rootCmd.PersistentFlags().String("soil-defaults", "", "YAML file overriding district soil defaults")
	rootCmd.PersistentFlags().String("history", "", "history backend: sqlite, postgres, clickhouse, memory or none")

	viper.BindPFlag("model.dir", rootCmd.PersistentFlags().Lookup("model-dir"))
	viper.BindPFlag("data.rainfall", rootCmd.PersistentFlags().Lookup("rainfall"))
	viper.BindPFlag("data.soil", rootCmd.PersistentFlags().Lookup("soil-defaults"))
	viper.BindPFlag("history.backend", rootCmd.PersistentFlags().Lookup("history"))

	utils.SetDefaults(viper.GetViper())
}

// initConfig reads in .env files, the config file and ENV variables if set.
func initConfig() {
	if err := utils.LoadEnvWithFallback(); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("cropadvisor")
	}

	utils.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		log.Printf("Using config file: %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		log.Printf("Failed to read config file %s: %v", cfgFile, err)
	}
}

func loadConfig() *utils.Config {
	return utils.LoadConfig(viper.GetViper())
}
