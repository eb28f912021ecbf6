package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/codyseavey/optcg-tracker/internal/models"
)

// MaxCSVDataLines caps the number of data lines accepted by a collection import.
const MaxCSVDataLines = 10000

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
}

// nonBlankLines returns the lines of data that are not whitespace-only.
func nonBlankLines(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// parseLine splits one CSV line on its own. An unbalanced quote fails that
// line only.
func parseLine(line string, delimiter rune) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.Read()
}

// ParseCollectionCSV parses a collection import. The delimiter is ';' only
// when the header has a ';' and no ','. The header must name a code (or
// cardCode) and a qty (or quantity) column; variant, condition and language
// are optional and fall back to their defaults. Rows without a code or with
// a quantity that is not a positive whole number are dropped.
func ParseCollectionCSV(data []byte) ([]models.ImportRow, error) {
	lines := nonBlankLines(stripBOM(data))
	if len(lines) == 0 {
		return nil, nil
	}
	if len(lines) > MaxCSVDataLines+1 {
		return nil, fmt.Errorf("%w: at most %d data lines are accepted, got %d", ErrCSVTooLarge, MaxCSVDataLines, len(lines)-1)
	}

	delimiter := ','
	if strings.Contains(lines[0], ";") && !strings.Contains(lines[0], ",") {
		delimiter = ';'
	}

	header, err := parseLine(lines[0], delimiter)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	col := func(names ...string) int {
		for _, name := range names {
			for i, h := range header {
				if strings.ToLower(strings.TrimSpace(h)) == name {
					return i
				}
			}
		}
		return -1
	}
	codeIdx := col("code", "cardcode")
	qtyIdx := col("qty", "quantity")
	if codeIdx < 0 || qtyIdx < 0 {
		return nil, fmt.Errorf(`%w: need a "code" (or "cardCode") column and a "qty" (or "quantity") column`, ErrCSVMissingColumns)
	}
	variantIdx := col("variant")
	conditionIdx := col("condition")
	languageIdx := col("language")

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []models.ImportRow
	for _, line := range lines[1:] {
		rec, err := parseLine(line, delimiter)
		if err != nil {
			// a broken row is skipped like any other unusable row
			continue
		}
		code := models.NormalizeCode(field(rec, codeIdx))
		if code == "" {
			continue
		}
		qty, ok := parseQty(field(rec, qtyIdx))
		if !ok {
			continue
		}
		rows = append(rows, models.ImportRow{
			Code:      code,
			Qty:       qty,
			Variant:   models.NormalizeVariant(field(rec, variantIdx)),
			Condition: models.NormalizeCondition(field(rec, conditionIdx)),
			Language:  models.NormalizeLanguage(field(rec, languageIdx)),
		})
	}
	return rows, nil
}

// parseQty accepts positive whole numbers, including forms like "2.0".
func parseQty(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, n > 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParsePricesCSV parses a price overlay import with columns
// code, trend_eur, avg30_eur[, updated_at[, url]]. A first line containing
// "code" is treated as a header. Numbers that fail to parse become nil; an
// empty or unparsable updated_at becomes now.
func ParsePricesCSV(data []byte, now time.Time) ([]models.PriceEntry, error) {
	lines := nonBlankLines(stripBOM(data))
	if len(lines) == 0 {
		return nil, nil
	}
	if strings.Contains(strings.ToLower(lines[0]), "code") {
		lines = lines[1:]
	}
	if len(lines) > MaxCSVDataLines {
		return nil, fmt.Errorf("%w: at most %d data lines are accepted, got %d", ErrCSVTooLarge, MaxCSVDataLines, len(lines))
	}

	var out []models.PriceEntry
	for _, line := range lines {
		rec, err := parseLine(line, ',')
		if err != nil {
			continue
		}
		get := func(i int) string {
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		code := models.NormalizeCode(get(0))
		if code == "" {
			continue
		}
		entry := models.PriceEntry{
			CardCode:  code,
			TrendEur:  parsePrice(get(1)),
			Avg30Eur:  parsePrice(get(2)),
			UpdatedAt: parseTimestamp(get(3), now),
			URL:       get(4),
		}
		out = append(out, entry)
	}
	return out, nil
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string, now time.Time) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now
}
