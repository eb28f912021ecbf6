package models

import "strings"

// Variant is the printing variant of a physical copy
type Variant string

const (
	VariantNormal   Variant = "normal"
	VariantAlt      Variant = "alt"
	VariantParallel Variant = "parallel"
)

// Condition is the graded condition of a physical copy
type Condition string

const (
	ConditionNM Condition = "NM" // Near Mint
	ConditionLP Condition = "LP" // Lightly Played
	ConditionMP Condition = "MP" // Moderately Played
	ConditionHP Condition = "HP" // Heavily Played
)

// CardLanguage is the print language of a physical copy
type CardLanguage string

const (
	LanguageEN    CardLanguage = "EN"
	LanguageJP    CardLanguage = "JP"
	LanguagePT    CardLanguage = "PT"
	LanguageES    CardLanguage = "ES"
	LanguageFR    CardLanguage = "FR"
	LanguageDE    CardLanguage = "DE"
	LanguageIT    CardLanguage = "IT"
	LanguageOther CardLanguage = "OTHER"
)

// AllVariants returns all valid variants
func AllVariants() []Variant {
	return []Variant{VariantNormal, VariantAlt, VariantParallel}
}

// AllConditions returns all valid conditions
func AllConditions() []Condition {
	return []Condition{ConditionNM, ConditionLP, ConditionMP, ConditionHP}
}

// AllCardLanguages returns all supported card languages
func AllCardLanguages() []CardLanguage {
	return []CardLanguage{
		LanguageEN,
		LanguageJP,
		LanguagePT,
		LanguageES,
		LanguageFR,
		LanguageDE,
		LanguageIT,
		LanguageOther,
	}
}

// NormalizeVariant maps free text to a Variant. Unknown or empty values
// become VariantNormal.
func NormalizeVariant(v string) Variant {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "alt":
		return VariantAlt
	case "parallel":
		return VariantParallel
	default:
		return VariantNormal
	}
}

// NormalizeCondition maps free text to a Condition, defaulting to NM.
func NormalizeCondition(c string) Condition {
	switch Condition(strings.ToUpper(strings.TrimSpace(c))) {
	case ConditionLP:
		return ConditionLP
	case ConditionMP:
		return ConditionMP
	case ConditionHP:
		return ConditionHP
	default:
		return ConditionNM
	}
}

// NormalizeLanguage maps free text to a CardLanguage, defaulting to EN.
func NormalizeLanguage(lang string) CardLanguage {
	l := CardLanguage(strings.ToUpper(strings.TrimSpace(lang)))
	for _, known := range AllCardLanguages() {
		if l == known {
			return l
		}
	}
	return LanguageEN
}
