package calculator

import (
	"slices"

	"github.com/samber/lo"
)

type ProjectType string

const (
	ProjectLanding  ProjectType = "landing"
	ProjectBasic    ProjectType = "basic"
	ProjectStandard ProjectType = "standard"
	ProjectEshop    ProjectType = "eshop"
)

var ProjectTypes = []ProjectType{ProjectLanding, ProjectBasic, ProjectStandard, ProjectEshop}

func (p ProjectType) Valid() bool {
	return lo.Contains(ProjectTypes, p)
}

type Addon string

const (
	AddonSEO            Addon = "seo"
	AddonLeadGeneration Addon = "lead-generation"
	AddonEmailMarketing Addon = "email-marketing"
	AddonAIAds          Addon = "ai-ads"
)

// Addons lists every addon in display order. Breakdown lines and stored sets
// follow this order.
var Addons = []Addon{AddonSEO, AddonLeadGeneration, AddonEmailMarketing, AddonAIAds}

func (a Addon) Valid() bool {
	return lo.Contains(Addons, a)
}

func addonRank(a Addon) int {
	return slices.Index(Addons, a)
}

// SortAddons returns a copy of set in display order with duplicates and
// unknown values removed.
func SortAddons(set []Addon) []Addon {
	out := lo.Uniq(lo.Filter(set, func(a Addon, _ int) bool { return a.Valid() }))
	slices.SortFunc(out, func(a, b Addon) int { return addonRank(a) - addonRank(b) })
	return out
}

// ToggleAddon flips membership of addon in set.
func ToggleAddon(set []Addon, addon Addon) []Addon {
	if lo.Contains(set, addon) {
		return SortAddons(lo.Without(set, addon))
	}
	return SortAddons(append(slices.Clone(set), addon))
}

// CalculatorData is everything the wizard collects before submission.
// Website and Fax are honeypot inputs that real visitors never fill in.
type CalculatorData struct {
	ProjectType ProjectType `json:"projectType"`
	Addons      []Addon     `json:"addons"`
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	Company     string      `json:"company"`
	GDPRConsent bool        `json:"gdprConsent"`
	Website     string      `json:"website,omitempty"`
	Fax         string      `json:"fax,omitempty"`
}

func NewCalculatorData() CalculatorData {
	return CalculatorData{Addons: []Addon{}}
}

// HoneypotFilled reports whether any of the hidden anti-bot inputs carries a value.
func (d CalculatorData) HoneypotFilled() bool {
	return d.Website != "" || d.Fax != ""
}

// Submission is the body posted to the lead endpoint.
type Submission struct {
	CalculatorData
	FormTimestamp *int64 `json:"__form_timestamp,omitempty"`
}

type LineType string

const (
	LineBase     LineType = "base"
	LineAddon    LineType = "addon"
	LineDiscount LineType = "discount"
)

type BreakdownItem struct {
	Label string   `json:"label"`
	Min   int64    `json:"min"`
	Max   int64    `json:"max"`
	Type  LineType `json:"type"`
}

type DayRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type PriceResult struct {
	ProjectType        ProjectType     `json:"projectType"`
	RecommendedPackage string          `json:"recommendedPackage"`
	TotalMin           int64           `json:"totalMin"`
	TotalMax           int64           `json:"totalMax"`
	Currency           string          `json:"currency"`
	Breakdown          []BreakdownItem `json:"breakdown"`
	IncludedFeatures   []string        `json:"includedFeatures"`
	EstimatedDays      DayRange        `json:"estimatedDays"`
}
