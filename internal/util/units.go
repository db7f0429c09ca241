package util

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyStripper = strings.NewReplacer("€", "", "$", "", "£", "", "EUR", "", "eur", "")

	weightKgPattern = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*kg\b`)
	weightGPattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(kg|g)\b`)
	cmUnitPattern   = regexp.MustCompile(`(?i)\bcm\b`)
	numberToken     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ParseLocaleNumber reads a numeric token in either German or English
// locale form ("1.234,56", "1,234.56", "12,50", "12.50"). Returns nil
// when nothing parseable remains.
func ParseLocaleNumber(raw string) *float64 {
	s := NormalizeSpaces(raw)
	s = currencyStripper.Replace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return nil
	}

	comma := strings.LastIndex(s, ",")
	dot := strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return FloatPtr(v)
}

// ParsePrice strips currency decoration, parses the locale number and
// rounds to two decimals.
func ParsePrice(raw string) *float64 {
	v := ParseLocaleNumber(raw)
	if v == nil {
		return nil
	}
	return FloatPtr(Round2(*v))
}

// ParseWeightGrams reads "1.5 kg" as 1500 and "300 g" as 300. A bare
// number is assumed to be grams already.
func ParseWeightGrams(raw string) *float64 {
	if m := weightGPattern.FindStringSubmatch(raw); m != nil {
		v := ParseLocaleNumber(m[1])
		if v == nil {
			return nil
		}
		if strings.EqualFold(m[2], "kg") {
			return FloatPtr(*v * 1000)
		}
		return v
	}
	return ParseLocaleNumber(raw)
}

// NormalizeWeight rewrites kilogram figures to grams ("0.102 kg" →
// "102 g"). Strings without a kg figure pass through untouched.
func NormalizeWeight(raw string) string {
	return weightKgPattern.ReplaceAllStringFunc(raw, func(tok string) string {
		num := numberToken.FindString(tok)
		v := ParseLocaleNumber(num)
		if v == nil {
			return tok
		}
		return formatTrimmed(*v*1000) + " g"
	})
}

// NormalizeDimensions rewrites centimeter dimension strings to
// millimeters ("5.7 × 2 × 6.9 cm" → "57 × 20 × 69 mm"). Strings without
// a cm unit pass through untouched.
func NormalizeDimensions(raw string) string {
	if !cmUnitPattern.MatchString(raw) {
		return raw
	}
	out := numberToken.ReplaceAllStringFunc(raw, func(tok string) string {
		v := ParseLocaleNumber(tok)
		if v == nil {
			return tok
		}
		return formatTrimmed(*v * 10)
	})
	return cmUnitPattern.ReplaceAllString(out, "mm")
}

func formatTrimmed(v float64) string {
	v = math.Round(v*1000) / 1000
	return strconv.FormatFloat(v, 'f', -1, 64)
}
