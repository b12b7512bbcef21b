package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"propdesk/internal/config"
	"propdesk/internal/models"
	"propdesk/internal/repository"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	seedPath := flag.String("seed", "configs/seed.yaml", "path to seed.yaml")
	flag.Parse()

	data, err := os.ReadFile(*seedPath)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed models.Seed
	if err = yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	if len(seed.Properties) == 0 {
		return fmt.Errorf("no properties in seed; verified customers would have nothing to book")
	}
	if err := config.ValidateSeed(seed); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	store := repository.NewMemoryStore(seed)
	stats, err := store.Stats(context.Background())
	if err != nil {
		return err
	}

	logger.Info().
		Str("seed", *seedPath).
		Int("brokers", stats.Brokers).
		Int("customers", stats.Customers).
		Int("properties", stats.Properties).
		Msg("seed ok")
	return nil
}
