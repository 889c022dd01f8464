package utils

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// EnvLocations are the .env files tried in order of preference
var EnvLocations = []string{
	".env",
	".env.local",
	"config/.env",
}

// LoadEnv loads environment variables from a .env file. Variables already
// set in the environment keep their values. A missing file is not an error.
func LoadEnv(filename string) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("error loading %s: %w", filename, err)
	}

	log.Printf("Loaded environment variables from %s", filename)
	return nil
}

// LoadEnvWithFallback loads the first .env file found in EnvLocations
func LoadEnvWithFallback() error {
	for _, location := range EnvLocations {
		if _, err := os.Stat(location); err != nil {
			continue
		}
		if err := LoadEnv(location); err != nil {
			log.Printf("Could not load %s: %v", location, err)
			continue
		}
		return nil
	}

	log.Printf("No .env files found in standard locations, using system environment only")
	return nil
}
