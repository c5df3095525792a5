package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/seacliff-digital/reportpilot/internal/models"
)

// defaultCurrency is the ISO code assumed for $-denominated report figures.
const defaultCurrency = "USD"

var (
	durationPattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})$`)
	currencyPattern = regexp.MustCompile(`^\$([\d,]+(?:\.\d+)?)$`)
	percentPattern  = regexp.MustCompile(`^([\d,]+(?:\.\d+)?)%$`)
	countPattern    = regexp.MustCompile(`^[\d,]+$`)
	deltaPattern    = regexp.MustCompile(`^[+-][\d,]+(?:\.\d+)?%$`)

	// valueToken matches any single figure as rendered in the report, in
	// recognizer priority order. N/A is matched case-insensitively.
	valueToken = regexp.MustCompile(`\d{2}:\d{2}:\d{2}|\$[\d,]+(?:\.\d+)?|[+-]?[\d,]+(?:\.\d+)?%|[\d,]+|(?i:N/A)`)
)

// ParseValue converts one report figure into its typed form. Recognition is
// attempted in priority order: duration, currency, percentage, plain count.
// N/A maps to Unavailable. The conversion is lossless: FormatValue of the
// result re-parses to an equal value.
func ParseValue(token string) (models.MetricValue, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.MetricValue{}, fmt.Errorf("empty value token")
	}
	if strings.EqualFold(token, "N/A") {
		return models.Unavailable(), nil
	}

	if m := durationPattern.FindStringSubmatch(token); m != nil {
		h, _ := strconv.ParseInt(m[1], 10, 64)
		mi, _ := strconv.ParseInt(m[2], 10, 64)
		s, _ := strconv.ParseInt(m[3], 10, 64)
		if mi >= 60 || s >= 60 {
			return models.MetricValue{}, fmt.Errorf("invalid duration %q", token)
		}
		return models.DurationValue(h*3600 + mi*60 + s), nil
	}

	if m := currencyPattern.FindStringSubmatch(token); m != nil {
		minor, err := parseMinorUnits(m[1])
		if err != nil {
			return models.MetricValue{}, fmt.Errorf("invalid currency %q: %w", token, err)
		}
		return models.CurrencyValue(minor, defaultCurrency), nil
	}

	if m := percentPattern.FindStringSubmatch(token); m != nil {
		p, err := strconv.ParseFloat(stripCommas(m[1]), 64)
		if err != nil {
			return models.MetricValue{}, fmt.Errorf("invalid percentage %q: %w", token, err)
		}
		return models.PercentValue(p), nil
	}

	if countPattern.MatchString(token) {
		n, err := strconv.ParseInt(stripCommas(token), 10, 64)
		if err != nil {
			return models.MetricValue{}, fmt.Errorf("invalid count %q: %w", token, err)
		}
		return models.CountValue(n), nil
	}

	return models.MetricValue{}, fmt.Errorf("unrecognized value token %q", token)
}

// ParseDelta converts an explicitly signed percentage token, the
// period-over-period change column. N/A maps to an Unavailable delta.
func ParseDelta(token string) (models.MetricValue, error) {
	token = strings.TrimSpace(token)
	if strings.EqualFold(token, "N/A") {
		return models.Unavailable(), nil
	}
	if !deltaPattern.MatchString(token) {
		return models.MetricValue{}, fmt.Errorf("unrecognized delta token %q", token)
	}
	sign := int64(1)
	if token[0] == '-' {
		sign = -1
	}
	p, err := strconv.ParseFloat(stripCommas(strings.TrimSuffix(token[1:], "%")), 64)
	if err != nil {
		return models.MetricValue{}, fmt.Errorf("invalid delta token %q: %w", token, err)
	}
	return models.PercentValue(float64(sign) * p), nil
}

// FormatValue renders a typed value back into the report's textual
// convention. Together with ParseValue it round-trips losslessly.
func FormatValue(v models.MetricValue) string {
	switch v.Kind {
	case models.MetricCount:
		return groupThousands(strconv.FormatInt(v.Count, 10))
	case models.MetricPercentage:
		return strconv.FormatFloat(v.Percent, 'f', -1, 64) + "%"
	case models.MetricCurrency:
		whole := v.MinorUnits / 100
		frac := v.MinorUnits % 100
		if frac < 0 {
			frac = -frac
		}
		return fmt.Sprintf("$%s.%02d", groupThousands(strconv.FormatInt(whole, 10)), frac)
	case models.MetricDuration:
		return fmt.Sprintf("%02d:%02d:%02d", v.Seconds/3600, (v.Seconds%3600)/60, v.Seconds%60)
	case models.MetricUnavailable:
		return "N/A"
	}
	return ""
}

func parseMinorUnits(raw string) (int64, error) {
	raw = stripCommas(raw)
	whole := raw
	frac := ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		whole = raw[:i]
		frac = raw[i+1:]
	}
	if len(frac) > 2 {
		// Keep full precision loud rather than truncating silently.
		return 0, fmt.Errorf("more than two decimal places in %q", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func stripCommas(s string) string {
	return strings.ReplaceAll(s, ",", "")
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	if len(digits) <= 3 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
