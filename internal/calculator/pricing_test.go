package calculator

import (
	"errors"
	"testing"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	engine, err := NewEngine(catalog)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

// allSubsets enumerates every addon combination, including the empty one.
func allSubsets() [][]Addon {
	var out [][]Addon
	for mask := 0; mask < 1<<len(Addons); mask++ {
		set := []Addon{}
		for i, a := range Addons {
			if mask&(1<<i) != 0 {
				set = append(set, a)
			}
		}
		out = append(out, set)
	}
	return out
}

func TestCalculate_BasicWithoutAddons(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Calculate(ProjectBasic, nil)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if res.TotalMin != 9990 || res.TotalMax != 14990 {
		t.Fatalf("total = %d-%d, want 9990-14990", res.TotalMin, res.TotalMax)
	}
	if res.RecommendedPackage != "Základní web" {
		t.Fatalf("RecommendedPackage = %q", res.RecommendedPackage)
	}
	if len(res.Breakdown) != 1 || res.Breakdown[0].Type != LineBase {
		t.Fatalf("breakdown = %+v, want a single base line", res.Breakdown)
	}
	if res.EstimatedDays != (DayRange{Min: 10, Max: 14}) {
		t.Fatalf("EstimatedDays = %+v", res.EstimatedDays)
	}
	if res.Currency != "CZK" {
		t.Fatalf("Currency = %q", res.Currency)
	}
}

func TestCalculate_TwoAddonsGetTierOneDiscount(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Calculate(ProjectStandard, []Addon{AddonLeadGeneration, AddonSEO})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	wantTypes := []LineType{LineBase, LineAddon, LineAddon, LineDiscount}
	if len(res.Breakdown) != len(wantTypes) {
		t.Fatalf("breakdown has %d lines, want %d", len(res.Breakdown), len(wantTypes))
	}
	for i, lt := range wantTypes {
		if res.Breakdown[i].Type != lt {
			t.Fatalf("line %d type = %s, want %s", i, res.Breakdown[i].Type, lt)
		}
	}
	// display order: seo before lead-generation regardless of input order
	if res.Breakdown[1].Label != "SEO optimalizace" {
		t.Fatalf("first addon line = %q, want SEO", res.Breakdown[1].Label)
	}
	if res.Breakdown[3].Min != -449 || res.Breakdown[3].Max != -699 {
		t.Fatalf("discount = %d/%d, want -449/-699", res.Breakdown[3].Min, res.Breakdown[3].Max)
	}
	if res.TotalMin != 28521 || res.TotalMax != 43271 {
		t.Fatalf("total = %d-%d, want 28521-43271", res.TotalMin, res.TotalMax)
	}
}

func TestCalculate_AllAddonsUseHighestTier(t *testing.T) {
	engine := newTestEngine(t)

	res, err := engine.Calculate(ProjectEshop, Addons)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	last := res.Breakdown[len(res.Breakdown)-1]
	if last.Type != LineDiscount || last.Label != "Sleva za balíček doplňků" {
		t.Fatalf("last line = %+v, want bundle discount", last)
	}
	if res.TotalMin != 56145 || res.TotalMax != 86054 {
		t.Fatalf("total = %d-%d, want 56145-86054", res.TotalMin, res.TotalMax)
	}
}

func TestCalculate_InvariantsForEveryInput(t *testing.T) {
	engine := newTestEngine(t)

	for _, pt := range ProjectTypes {
		for _, addons := range allSubsets() {
			res, err := engine.Calculate(pt, addons)
			if err != nil {
				t.Fatalf("Calculate(%s, %v): %v", pt, addons, err)
			}
			if res.TotalMin < 0 || res.TotalMax < 0 {
				t.Fatalf("%s %v: negative total %d-%d", pt, addons, res.TotalMin, res.TotalMax)
			}
			if res.TotalMin > res.TotalMax {
				t.Fatalf("%s %v: min %d > max %d", pt, addons, res.TotalMin, res.TotalMax)
			}

			var sumMin, sumMax int64
			for _, line := range res.Breakdown {
				sumMin += line.Min
				sumMax += line.Max
			}
			if sumMin != res.TotalMin || sumMax != res.TotalMax {
				t.Fatalf("%s %v: breakdown sums %d/%d, totals %d/%d", pt, addons, sumMin, sumMax, res.TotalMin, res.TotalMax)
			}
			if res.Breakdown[0].Type != LineBase {
				t.Fatalf("%s %v: first line is %s", pt, addons, res.Breakdown[0].Type)
			}
		}
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	addons := []Addon{AddonAIAds, AddonSEO}

	first, err := engine.Calculate(ProjectLanding, addons)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	second, _ := engine.Calculate(ProjectLanding, addons)

	if first.TotalMin != second.TotalMin || first.TotalMax != second.TotalMax || len(first.Breakdown) != len(second.Breakdown) {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	if addons[0] != AddonAIAds {
		t.Fatal("Calculate must not reorder the caller's slice")
	}
}

func TestCalculate_RejectsUnknownInput(t *testing.T) {
	engine := newTestEngine(t)

	if _, err := engine.Calculate("wordpress", nil); !errors.Is(err, ErrUnknownProjectType) {
		t.Fatalf("err = %v, want ErrUnknownProjectType", err)
	}
	if _, err := engine.Calculate(ProjectBasic, []Addon{"tiktok"}); !errors.Is(err, ErrUnknownAddon) {
		t.Fatalf("err = %v, want ErrUnknownAddon", err)
	}
}

func TestParseCatalog_RejectsInvertedRange(t *testing.T) {
	doc := []byte(`
currency: CZK
packages:
  landing: {label: L, min: 10, max: 5, days: {min: 1, max: 2}}
  basic: {label: B, min: 1, max: 2, days: {min: 1, max: 2}}
  standard: {label: S, min: 1, max: 2, days: {min: 1, max: 2}}
  eshop: {label: E, min: 1, max: 2, days: {min: 1, max: 2}}
addons:
  seo: {label: a, min: 1, max: 1}
  lead-generation: {label: b, min: 1, max: 1}
  email-marketing: {label: c, min: 1, max: 1}
  ai-ads: {label: d, min: 1, max: 1}
`)
	if _, err := ParseCatalog(doc); err == nil {
		t.Fatal("expected error for min > max")
	}
}

func TestParseCatalog_RejectsMissingAddon(t *testing.T) {
	doc := []byte(`
currency: CZK
packages:
  landing: {label: L, min: 1, max: 5, days: {min: 1, max: 2}}
  basic: {label: B, min: 1, max: 2, days: {min: 1, max: 2}}
  standard: {label: S, min: 1, max: 2, days: {min: 1, max: 2}}
  eshop: {label: E, min: 1, max: 2, days: {min: 1, max: 2}}
addons:
  seo: {label: a, min: 1, max: 1}
`)
	if _, err := ParseCatalog(doc); err == nil {
		t.Fatal("expected error for missing addons")
	}
}

func TestParseCatalog_RejectsDuplicateDiscountTier(t *testing.T) {
	base := `
currency: CZK
packages:
  landing: {label: L, min: 1, max: 5, days: {min: 1, max: 2}}
  basic: {label: B, min: 1, max: 2, days: {min: 1, max: 2}}
  standard: {label: S, min: 1, max: 2, days: {min: 1, max: 2}}
  eshop: {label: E, min: 1, max: 2, days: {min: 1, max: 2}}
addons:
  seo: {label: a, min: 1, max: 1}
  lead-generation: {label: b, min: 1, max: 1}
  email-marketing: {label: c, min: 1, max: 1}
  ai-ads: {label: d, min: 1, max: 1}
discounts:
  - {min_addons: 2, percent: 5, label: Sleva}
`
	if _, err := ParseCatalog([]byte(base)); err != nil {
		t.Fatalf("single tier: %v", err)
	}
	dup := base + "  - {min_addons: 2, percent: 15, label: Jiná sleva}\n"
	if _, err := ParseCatalog([]byte(dup)); err == nil {
		t.Fatal("expected error for two tiers with the same min_addons")
	}
}
