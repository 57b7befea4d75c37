package calculator

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
)

var (
	ErrUnknownProjectType = errors.New("unknown project type")
	ErrUnknownAddon       = errors.New("unknown addon")
)

type Engine struct {
	catalog *Catalog
}

func NewEngine(catalog *Catalog) (*Engine, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &Engine{catalog: catalog}, nil
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Estimate prices the project type and addons held in data.
func (e *Engine) Estimate(data CalculatorData) (PriceResult, error) {
	return e.Calculate(data.ProjectType, data.Addons)
}

// Calculate returns the price range for a package plus addons. Lines are
// ordered base, addons in display order, then the bundle discount if any.
// The sum of line minimums (maximums) equals TotalMin (TotalMax).
func (e *Engine) Calculate(projectType ProjectType, addons []Addon) (PriceResult, error) {
	pkg, ok := e.catalog.Packages[projectType]
	if !ok {
		return PriceResult{}, fmt.Errorf("%w: %q", ErrUnknownProjectType, projectType)
	}
	for _, a := range addons {
		if !a.Valid() {
			return PriceResult{}, fmt.Errorf("%w: %q", ErrUnknownAddon, a)
		}
	}
	selected := SortAddons(addons)

	res := PriceResult{
		ProjectType:        projectType,
		RecommendedPackage: pkg.Label,
		Currency:           e.catalog.Currency,
		EstimatedDays:      DayRange{Min: pkg.Days.Min, Max: pkg.Days.Max},
		Breakdown: []BreakdownItem{{
			Label: pkg.Label,
			Min:   pkg.Min,
			Max:   pkg.Max,
			Type:  LineBase,
		}},
		IncludedFeatures: append([]string{}, pkg.Features...),
	}

	var addonMin, addonMax int64
	for _, a := range selected {
		ap := e.catalog.Addons[a]
		addonMin += ap.Min
		addonMax += ap.Max
		res.Breakdown = append(res.Breakdown, BreakdownItem{
			Label: ap.Label,
			Min:   ap.Min,
			Max:   ap.Max,
			Type:  LineAddon,
		})
		res.IncludedFeatures = append(res.IncludedFeatures, ap.Features...)
	}
	res.IncludedFeatures = lo.Uniq(res.IncludedFeatures)

	if tier, ok := e.discountFor(len(selected)); ok {
		dMin := percentOf(addonMin, tier.Percent)
		dMax := percentOf(addonMax, tier.Percent)
		if dMin > 0 || dMax > 0 {
			res.Breakdown = append(res.Breakdown, BreakdownItem{
				Label: tier.Label,
				Min:   -dMin,
				Max:   -dMax,
				Type:  LineDiscount,
			})
		}
	}

	for _, line := range res.Breakdown {
		res.TotalMin += line.Min
		res.TotalMax += line.Max
	}
	return res, nil
}

// discountFor picks the highest tier reached by n addons. Tiers are sorted
// ascending by ParseCatalog.
func (e *Engine) discountFor(n int) (DiscountTier, bool) {
	var (
		best  DiscountTier
		found bool
	)
	for _, d := range e.catalog.Discounts {
		if n >= d.MinAddons && (!found || d.MinAddons >= best.MinAddons) {
			best, found = d, true
		}
	}
	return best, found
}

// percentOf rounds half up in whole currency units.
func percentOf(amount, percent int64) int64 {
	return (amount*percent + 50) / 100
}
