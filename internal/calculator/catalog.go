package calculator

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

type Package struct {
	Label    string   `yaml:"label" json:"label"`
	Min      int64    `yaml:"min" json:"min"`
	Max      int64    `yaml:"max" json:"max"`
	Days     Range    `yaml:"days" json:"days"`
	Features []string `yaml:"features" json:"features"`
}

type AddonPrice struct {
	Label    string   `yaml:"label" json:"label"`
	Min      int64    `yaml:"min" json:"min"`
	Max      int64    `yaml:"max" json:"max"`
	Features []string `yaml:"features" json:"features"`
}

// DiscountTier applies Percent off the addon subtotal once at least MinAddons
// addons are selected.
type DiscountTier struct {
	MinAddons int    `yaml:"min_addons" json:"minAddons"`
	Percent   int64  `yaml:"percent" json:"percent"`
	Label     string `yaml:"label" json:"label"`
}

type Catalog struct {
	Currency  string                  `yaml:"currency" json:"currency"`
	Packages  map[ProjectType]Package `yaml:"packages" json:"packages"`
	Addons    map[Addon]AddonPrice    `yaml:"addons" json:"addons"`
	Discounts []DiscountTier          `yaml:"discounts" json:"discounts"`
}

// DefaultCatalog returns the embedded price list.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a price list from path. An empty path yields the embedded one.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	sort.Slice(c.Discounts, func(i, j int) bool {
		return c.Discounts[i].MinAddons < c.Discounts[j].MinAddons
	})
	return &c, nil
}

// Validate checks that every project type and addon is priced and that all
// ranges are ordered and non-negative.
func (c *Catalog) Validate() error {
	if c.Currency == "" {
		return fmt.Errorf("catalog: currency is required")
	}
	for _, pt := range ProjectTypes {
		p, ok := c.Packages[pt]
		if !ok {
			return fmt.Errorf("catalog: missing package %q", pt)
		}
		if p.Min < 0 || p.Min > p.Max {
			return fmt.Errorf("catalog: package %q has invalid range %d-%d", pt, p.Min, p.Max)
		}
		if p.Days.Min <= 0 || p.Days.Min > p.Days.Max {
			return fmt.Errorf("catalog: package %q has invalid delivery range %d-%d", pt, p.Days.Min, p.Days.Max)
		}
	}
	for pt := range c.Packages {
		if !pt.Valid() {
			return fmt.Errorf("catalog: unknown package %q", pt)
		}
	}
	for _, a := range Addons {
		ap, ok := c.Addons[a]
		if !ok {
			return fmt.Errorf("catalog: missing addon %q", a)
		}
		if ap.Min < 0 || ap.Min > ap.Max {
			return fmt.Errorf("catalog: addon %q has invalid range %d-%d", a, ap.Min, ap.Max)
		}
	}
	for a := range c.Addons {
		if !a.Valid() {
			return fmt.Errorf("catalog: unknown addon %q", a)
		}
	}
	seen := make(map[int]struct{}, len(c.Discounts))
	for _, d := range c.Discounts {
		if _, dup := seen[d.MinAddons]; dup {
			return fmt.Errorf("catalog: duplicate discount tier for min_addons %d", d.MinAddons)
		}
		seen[d.MinAddons] = struct{}{}
		if d.MinAddons < 1 {
			return fmt.Errorf("catalog: discount tier needs min_addons >= 1")
		}
		if d.Percent < 0 || d.Percent >= 100 {
			return fmt.Errorf("catalog: discount percent %d out of range", d.Percent)
		}
	}
	return nil
}
