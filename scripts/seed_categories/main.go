package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
)

func main() {
	var (
		path    string
		dryRun  bool
		timeout time.Duration
	)

	flag.StringVar(&path, "file", filepath.Join("scripts", "seed_categories", "categories.yaml"), "Path to category YAML file")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse and validate without writing")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Database timeout")
	flag.Parse()

	categories, err := loadCategories(path)
	if err != nil {
		log.Fatalf("failed to load categories: %v", err)
	}
	if dryRun {
		for _, c := range categories {
			fmt.Printf("%-20s %-30s %s active=%t\n", c.ID, c.Name, c.Color, c.Active)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := repository.NewCategoryRepository(db).Upsert(ctx, categories); err != nil {
		log.Fatalf("failed to seed categories: %v", err)
	}
	fmt.Printf("seeded %d categories\n", len(categories))
}

func loadCategories(path string) ([]models.Category, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseCategories(raw)
}

// parseCategories decodes the seed document. Entries without an explicit active flag are active.
func parseCategories(raw []byte) ([]models.Category, error) {
	var doc struct {
		Categories []struct {
			ID     string `yaml:"id"`
			Name   string `yaml:"name"`
			Color  string `yaml:"color"`
			Active *bool  `yaml:"active"`
		} `yaml:"categories"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Categories))
	out := make([]models.Category, 0, len(doc.Categories))
	for i, entry := range doc.Categories {
		id := strings.TrimSpace(entry.ID)
		name := strings.TrimSpace(entry.Name)
		if id == "" || name == "" {
			return nil, fmt.Errorf("category %d: id and name are required", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("category %q listed twice", id)
		}
		seen[id] = struct{}{}
		active := true
		if entry.Active != nil {
			active = *entry.Active
		}
		out = append(out, models.Category{ID: id, Name: name, Color: strings.TrimSpace(entry.Color), Active: active})
	}
	return out, nil
}
