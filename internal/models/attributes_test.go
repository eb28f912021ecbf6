package models

import (
	"testing"
)

func TestNormalizeVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{"normal", VariantNormal},
		{"ALT", VariantAlt},
		{" parallel ", VariantParallel},
		{"", VariantNormal},
		{"foil", VariantNormal},
	}

	for _, tt := range tests {
		if got := NormalizeVariant(tt.in); got != tt.want {
			t.Errorf("NormalizeVariant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeCondition(t *testing.T) {
	tests := []struct {
		in   string
		want Condition
	}{
		{"NM", ConditionNM},
		{"lp", ConditionLP},
		{"MP", ConditionMP},
		{" hp", ConditionHP},
		{"DMG", ConditionNM}, // not tracked, falls back to NM
		{"", ConditionNM},
	}

	for _, tt := range tests {
		if got := NormalizeCondition(tt.in); got != tt.want {
			t.Errorf("NormalizeCondition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want CardLanguage
	}{
		{"EN", LanguageEN},
		{"jp", LanguageJP},
		{"pt", LanguagePT},
		{"other", LanguageOther},
		{"", LanguageEN},
		{"Klingon", LanguageEN},
	}

	for _, tt := range tests {
		if got := NormalizeLanguage(tt.in); got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAllCardLanguages(t *testing.T) {
	langs := AllCardLanguages()
	if len(langs) != 8 {
		t.Errorf("AllCardLanguages() returned %d languages, want 8", len(langs))
	}
}

func TestStockKeyNormalizesCode(t *testing.T) {
	item := CollectionItem{CardCode: " op01-001 ", Variant: VariantNormal, Condition: ConditionNM, Language: LanguageEN}
	row := ImportRow{Code: "OP01-001", Variant: VariantNormal, Condition: ConditionNM, Language: LanguageEN}

	if item.Key() != row.Key() {
		t.Errorf("item key %v != row key %v", item.Key(), row.Key())
	}
	if got := row.Key().String(); got != "OP01-001__normal__NM__EN" {
		t.Errorf("StockKey.String() = %q", got)
	}
}

func TestSetKeyOf(t *testing.T) {
	if got := SetKeyOf(" op01 "); got != "OP01" {
		t.Errorf("SetKeyOf = %q, want OP01", got)
	}
	if got := SetKeyOf(""); got != UnknownSet {
		t.Errorf("SetKeyOf(\"\") = %q, want %q", got, UnknownSet)
	}
}
