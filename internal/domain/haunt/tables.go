package haunt

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

//go:embed tables.yaml
var tablesYAML []byte

// Tier is a set of lines that applies from Level upward.
type Tier struct {
	Level int      `yaml:"level" toml:"level"`
	Lines []string `yaml:"lines" toml:"lines"`
}

// Tables holds the canned fallback lines.
type Tables struct {
	Tiers     []Tier   `yaml:"tiers" toml:"tiers"`
	Universal []string `yaml:"universal" toml:"universal"`
}

// ParseTables decodes fallback tables from YAML. Tiers are sorted by level.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse haunt tables: %w", err)
	}
	return t.validate()
}

// ParseTablesTOML decodes fallback tables from TOML.
func ParseTablesTOML(data []byte) (*Tables, error) {
	var t Tables
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse haunt tables: %w", err)
	}
	return t.validate()
}

// LoadTables reads tables from disk. Files ending in .toml are decoded as
// TOML, anything else as YAML.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read haunt tables: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTablesTOML(data)
	}
	return ParseTables(data)
}

func (t Tables) validate() (*Tables, error) {
	if len(t.Tiers) == 0 {
		return nil, fmt.Errorf("parse haunt tables: no tiers")
	}
	for _, tier := range t.Tiers {
		if len(tier.Lines) == 0 {
			return nil, fmt.Errorf("parse haunt tables: tier %d has no lines", tier.Level)
		}
	}
	sort.Slice(t.Tiers, func(i, j int) bool { return t.Tiers[i].Level < t.Tiers[j].Level })
	return &t, nil
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	t, err := ParseTables(tablesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// PoolFor returns the lines eligible at level: the highest tier at or
// below it plus the universal lines.
func (t *Tables) PoolFor(level int) []string {
	tier := t.Tiers[0]
	for _, candidate := range t.Tiers {
		if candidate.Level <= level {
			tier = candidate
		}
	}

	pool := make([]string, 0, len(tier.Lines)+len(t.Universal))
	pool = append(pool, tier.Lines...)
	return append(pool, t.Universal...)
}
