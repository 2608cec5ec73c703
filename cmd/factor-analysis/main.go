package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/hfanalytics/macro-factor-attribution/internal/config"
	apperrors "github.com/hfanalytics/macro-factor-attribution/internal/errors"
	"github.com/hfanalytics/macro-factor-attribution/internal/pipeline"
)

const version = "1.2.0"

func main() {
	var (
		configFile  = flag.String("config", "", "Optional JSON config file")
		dataDir     = flag.String("data-dir", "", "Directory holding the fund workbook and benchmark file")
		outputDir   = flag.String("output-dir", "", "Directory for report artifacts")
		consoleOnly = flag.Bool("console-only", false, "Print to the console without writing files")
		offline     = flag.Bool("offline", false, "Skip all network fetches and use the local cache only")
		envFile     = flag.String("env", ".env", "Environment file path (default: .env)")
		showVersion = flag.Bool("version", false, "Print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("factor-analysis v%s\n", version)
		return
	}

	if err := loadEnvFile(*envFile); err != nil {
		log.Printf("⚠️  Could not load .env file (%v), using environment as is", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *consoleOnly {
		cfg.Output.ConsoleOnly = true
	}
	if *offline {
		cfg.Fetch.Offline = true
	}

	printHeader(cfg)

	if err := pipeline.New(cfg).Run(); err != nil {
		if apperrors.IsFatalError(err) {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("❌ Run finished with errors: %v", err)
		os.Exit(1)
	}
	fmt.Println("\n✅ Analysis complete")
}

func printHeader(cfg *config.Config) {
	fmt.Println("🚀 Macro Factor Attribution")
	fmt.Printf("📂 Data: %s | Output: %s | Cache: %s\n", cfg.Data.Dir, cfg.Output.Dir, cfg.Fetch.CacheDir)
	if cfg.Fetch.Offline {
		fmt.Println("📴 Offline mode: local cache only")
	}
}

// loadEnvFile loads environment variables from a file
func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}
