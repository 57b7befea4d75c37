package calculator

import (
	"slices"
	"testing"
)

func validContact() CalculatorData {
	d := NewCalculatorData()
	d.ProjectType = ProjectBasic
	d.Name = "Jan Novák"
	d.Email = "jan@example.cz"
	d.GDPRConsent = true
	return d
}

func TestValidateContact(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*CalculatorData)
		wantField string
	}{
		{name: "valid", mutate: func(*CalculatorData) {}},
		{name: "email without domain", mutate: func(d *CalculatorData) { d.Email = "not-an-email" }, wantField: FieldEmail},
		{name: "short email accepted", mutate: func(d *CalculatorData) { d.Email = "a@b.cz" }},
		{name: "one letter name", mutate: func(d *CalculatorData) { d.Name = "A" }, wantField: FieldName},
		{name: "padded one letter name", mutate: func(d *CalculatorData) { d.Name = "  A  " }, wantField: FieldName},
		{name: "three letter name", mutate: func(d *CalculatorData) { d.Name = "Ana" }},
		{name: "two letter diacritics", mutate: func(d *CalculatorData) { d.Name = "Čí" }},
		{name: "empty phone", mutate: func(d *CalculatorData) { d.Phone = "" }},
		{name: "short phone", mutate: func(d *CalculatorData) { d.Phone = "123" }, wantField: FieldPhone},
		{name: "grouped phone", mutate: func(d *CalculatorData) { d.Phone = "777 123 456" }},
		{name: "international phone", mutate: func(d *CalculatorData) { d.Phone = "+420 777 123 456" }},
		{name: "no consent", mutate: func(d *CalculatorData) { d.GDPRConsent = false }, wantField: FieldGDPRConsent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validContact()
			tt.mutate(&d)

			errs := ValidateContact(d)
			if tt.wantField == "" {
				if !errs.Empty() {
					t.Fatalf("unexpected errors %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("errors = %v, want only %s", errs, tt.wantField)
			}
			if _, ok := errs[tt.wantField]; !ok {
				t.Fatalf("errors = %v, want %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidateContact_GDPRBlocksOtherwiseValidForm(t *testing.T) {
	d := validContact()
	d.Phone = "+420 777 123 456"
	d.Company = "Novák s.r.o."
	d.GDPRConsent = false

	errs := ValidateContact(d)
	if errs[FieldGDPRConsent] != MsgGDPRConsent {
		t.Fatalf("errors = %v, want GDPR message", errs)
	}
}

func TestValidateSubmission_ChecksProjectAndAddons(t *testing.T) {
	d := validContact()
	d.ProjectType = ""
	d.Addons = []Addon{AddonSEO, "tiktok"}

	errs := ValidateSubmission(d)
	if _, ok := errs[FieldProjectType]; !ok {
		t.Fatalf("errors = %v, want projectType", errs)
	}
	if _, ok := errs[FieldAddons]; !ok {
		t.Fatalf("errors = %v, want addons", errs)
	}
}

func TestToggleAddon_TwiceRestoresSet(t *testing.T) {
	for _, start := range [][]Addon{{}, {AddonSEO}, {AddonSEO, AddonAIAds}} {
		for _, a := range Addons {
			once := ToggleAddon(start, a)
			twice := ToggleAddon(once, a)
			if !slices.Equal(twice, SortAddons(start)) {
				t.Fatalf("toggle %s twice on %v gave %v", a, start, twice)
			}
		}
	}
}

func TestToggleAddon_KeepsDisplayOrder(t *testing.T) {
	set := ToggleAddon([]Addon{AddonAIAds}, AddonSEO)
	want := []Addon{AddonSEO, AddonAIAds}
	if !slices.Equal(set, want) {
		t.Fatalf("set = %v, want %v", set, want)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone("777 123 456"); got != "+420777123456" {
		t.Fatalf("NormalizePhone = %q", got)
	}
	if got := NormalizePhone("+421 905 123 456"); got != "+421905123456" {
		t.Fatalf("NormalizePhone = %q", got)
	}
	if got := NormalizePhone("  "); got != "" {
		t.Fatalf("NormalizePhone = %q", got)
	}
}
