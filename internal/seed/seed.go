// Package seed installs reference data on first run: grocery
// categories and quantity units from an embedded TOML file, and a
// fallback foodbank directory from an embedded YAML file. Seeding is
// idempotent; rows are upserted by their natural key.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/zhiliushi/pantry/internal/model"
	"github.com/zhiliushi/pantry/internal/repo"
	"github.com/zhiliushi/pantry/internal/store"
)

//go:embed reference.toml
var referenceTOML []byte

//go:embed foodbanks.yaml
var foodbanksYAML []byte

type referenceFile struct {
	Categories []struct {
		Name      string  `toml:"name"`
		Icon      *string `toml:"icon"`
		SortOrder int     `toml:"sort_order"`
	} `toml:"categories"`
	Units []struct {
		Name   string `toml:"name"`
		Abbrev string `toml:"abbrev"`
	} `toml:"units"`
}

type foodbankFile struct {
	Foodbanks []struct {
		ID        string   `yaml:"id"`
		Name      string   `yaml:"name"`
		Address   *string  `yaml:"address"`
		Latitude  *float64 `yaml:"latitude"`
		Longitude *float64 `yaml:"longitude"`
		Phone     *string  `yaml:"phone"`
		Website   *string  `yaml:"website"`
	} `yaml:"foodbanks"`
}

// Run installs all embedded reference data. logger may be nil.
func Run(ctx context.Context, db *store.DB, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ref := repo.NewReferenceRepo(db)

	var refs referenceFile
	if err := toml.Unmarshal(referenceTOML, &refs); err != nil {
		return fmt.Errorf("failed to parse reference seed: %w", err)
	}
	for _, c := range refs.Categories {
		cat := model.Category{Name: c.Name, Icon: c.Icon, SortOrder: c.SortOrder}
		if err := ref.UpsertCategory(ctx, &cat); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
	}
	for _, u := range refs.Units {
		unit := model.Unit{Name: u.Name, Abbrev: u.Abbrev}
		if err := ref.UpsertUnit(ctx, &unit); err != nil {
			return fmt.Errorf("failed to seed unit %q: %w", u.Abbrev, err)
		}
	}
	logger.Printf("seeded %d categories, %d units", len(refs.Categories), len(refs.Units))

	// Foodbanks seed only when the table is empty; sync owns the table
	// after the first successful pull.
	existing, err := ref.Foodbanks(ctx)
	if err != nil {
		return fmt.Errorf("failed to check foodbanks: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	var banks foodbankFile
	if err := yaml.Unmarshal(foodbanksYAML, &banks); err != nil {
		return fmt.Errorf("failed to parse foodbank seed: %w", err)
	}
	rows := make([]model.Foodbank, 0, len(banks.Foodbanks))
	now := time.Now()
	for _, b := range banks.Foodbanks {
		rows = append(rows, model.Foodbank{
			ID:        b.ID,
			Name:      b.Name,
			Address:   b.Address,
			Latitude:  b.Latitude,
			Longitude: b.Longitude,
			Phone:     b.Phone,
			Website:   b.Website,
			UpdatedAt: now,
		})
	}
	if err := ref.ReplaceFoodbanks(ctx, rows); err != nil {
		return fmt.Errorf("failed to seed foodbanks: %w", err)
	}
	logger.Printf("seeded %d foodbanks", len(rows))
	return nil
}
