package calculator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldGDPRConsent = "gdprConsent"
	FieldProjectType = "projectType"
	FieldAddons      = "addons"
)

const (
	MsgName        = "Zadejte prosím jméno (alespoň 2 znaky)."
	MsgEmail       = "Zadejte prosím platný e-mail."
	MsgPhone       = "Zadejte prosím platné telefonní číslo, např. +420 777 123 456."
	MsgGDPRConsent = "Pro odeslání je nutný souhlas se zpracováním osobních údajů."
	MsgProjectType = "Vyberte prosím typ projektu."
	MsgAddons      = "Neznámý doplněk."
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// +420 prefix optional, then three groups of three digits.
	phonePattern = regexp.MustCompile(`^(\+420)? ?[1-9][0-9]{2} ?[0-9]{3} ?[0-9]{3}$`)
)

// FieldErrors maps a form field to a user facing message.
type FieldErrors map[string]string

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// IsValidPhone accepts an empty value since the phone is optional.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// ValidateContact checks the contact step. GDPR consent is always required.
func ValidateContact(d CalculatorData) FieldErrors {
	errs := FieldErrors{}

	if utf8.RuneCountInString(strings.TrimSpace(d.Name)) < 2 {
		errs[FieldName] = MsgName
	}
	if !IsValidEmail(d.Email) {
		errs[FieldEmail] = MsgEmail
	}
	if !IsValidPhone(d.Phone) {
		errs[FieldPhone] = MsgPhone
	}
	if !d.GDPRConsent {
		errs[FieldGDPRConsent] = MsgGDPRConsent
	}
	return errs
}

// ValidateSubmission runs every step's checks at once, as the lead endpoint
// cannot trust the client to have done so.
func ValidateSubmission(d CalculatorData) FieldErrors {
	errs := ValidateContact(d)
	if !d.ProjectType.Valid() {
		errs[FieldProjectType] = MsgProjectType
	}
	for _, a := range d.Addons {
		if !a.Valid() {
			errs[FieldAddons] = MsgAddons
			break
		}
	}
	return errs
}

// NormalizePhone strips spaces and adds the Czech prefix to nine digit numbers.
func NormalizePhone(phone string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if cleaned == "" {
		return ""
	}
	if !strings.HasPrefix(cleaned, "+") && len(cleaned) == 9 {
		return "+420" + cleaned
	}
	return cleaned
}
