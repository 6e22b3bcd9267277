package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"ocrbench/cmd"
	"ocrbench/internal/config"
	"ocrbench/internal/logger"
)

func main() {
	loadEnvFiles()
	setupLogging()
	os.Exit(cmd.Execute())
}

// loadEnvFiles reads .env, then .env.local overriding it. Missing files are fine.
func loadEnvFiles() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}
	if err := godotenv.Overload(".env.local"); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env.local file: %v", err)
	}
}

// setupLogging configures the global logger before any command runs. An
// invalid configuration is reported again by the command that loads it.
func setupLogging() {
	logConfig := logger.DefaultConfig()
	if cfg, err := config.Load(); err == nil {
		logConfig = cfg.GetLoggerConfig()
	}
	if err := logger.Setup(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
}
