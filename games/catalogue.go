package games

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/retaildemo/feedsync/pkg/models"
)

// Defaults are the upstream request settings shared by every game
type Defaults struct {
	OffsetSeconds         int      `yaml:"offset_seconds"`
	LanguageCode          string   `yaml:"language_code"`
	BettingLayout         string   `yaml:"betting_layout"`
	PrimaryMarketClassIDs []string `yaml:"primary_market_class_ids"`
}

// Catalogue is the set of configured games
type Catalogue struct {
	Games    []models.GameConfig `yaml:"games"`
	Defaults Defaults            `yaml:"defaults"`
}

// DefaultCatalogue is used when no catalogue file exists
func DefaultCatalogue() *Catalogue {
	return &Catalogue{
		Games: []models.GameConfig{
			{
				TypeName:        "MotorRacing",
				FeedID:          90,
				DurationSeconds: 240,
				Description:     "Motor Racing",
				Enabled:         true,
			},
		},
		Defaults: DefaultDefaults(),
	}
}

// DefaultDefaults returns the built-in upstream request settings
func DefaultDefaults() Defaults {
	return Defaults{
		OffsetSeconds:         10800,
		LanguageCode:          "en",
		BettingLayout:         "1",
		PrimaryMarketClassIDs: []string{"1", "2"},
	}
}

// Load reads a YAML catalogue. A missing file yields DefaultCatalogue.
func Load(path string) (*Catalogue, error) {
	if path == "" {
		return DefaultCatalogue(), nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultCatalogue(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read games catalogue: %w", err)
	}

	cat := &Catalogue{Defaults: DefaultDefaults()}
	if err := yaml.Unmarshal(data, cat); err != nil {
		return nil, fmt.Errorf("parse games catalogue: %w", err)
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks the catalogue for entries the scheduler cannot run
func (c *Catalogue) Validate() error {
	seen := make(map[string]bool, len(c.Games))
	for i, g := range c.Games {
		if g.TypeName == "" {
			return fmt.Errorf("game %d: type_name is required", i)
		}
		if seen[g.TypeName] {
			return fmt.Errorf("game %s: duplicate entry", g.TypeName)
		}
		seen[g.TypeName] = true
		if g.DurationSeconds <= 0 {
			return fmt.Errorf("game %s: duration_seconds must be positive", g.TypeName)
		}
	}
	return nil
}
