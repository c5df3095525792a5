package models

import "time"

// ReportKind identifies which metric vocabulary a report carries.
type ReportKind string

const (
	ReportKindSEO        ReportKind = "SEO"
	ReportKindPaidSearch ReportKind = "PAID_SEARCH"
)

// MetricKind tags the typed form of a parsed metric value.
type MetricKind string

const (
	MetricCount       MetricKind = "count"
	MetricPercentage  MetricKind = "percentage"
	MetricCurrency    MetricKind = "currency"
	MetricDuration    MetricKind = "duration"
	MetricUnavailable MetricKind = "unavailable"
)

// MetricValue is the typed form of one report figure. Exactly the fields
// matching Kind are meaningful; the rest stay zero.
type MetricValue struct {
	Kind MetricKind `json:"kind"`

	Count      int64   `json:"count,omitempty"`
	Percent    float64 `json:"percent,omitempty"`
	MinorUnits int64   `json:"minor_units,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	Seconds    int64   `json:"seconds,omitempty"`

	// Delta is the period-over-period change: a percentage, unavailable, or
	// nil when the document carried no change column for this metric.
	Delta *MetricValue `json:"delta,omitempty"`
}

// Unavailable builds the unavailable sentinel value.
func Unavailable() MetricValue {
	return MetricValue{Kind: MetricUnavailable}
}

// CountValue builds a plain count metric.
func CountValue(n int64) MetricValue {
	return MetricValue{Kind: MetricCount, Count: n}
}

// PercentValue builds a percentage metric.
func PercentValue(p float64) MetricValue {
	return MetricValue{Kind: MetricPercentage, Percent: p}
}

// CurrencyValue builds a currency metric in minor units.
func CurrencyValue(minorUnits int64, code string) MetricValue {
	return MetricValue{Kind: MetricCurrency, MinorUnits: minorUnits, Currency: code}
}

// DurationValue builds a duration metric in whole seconds.
func DurationValue(seconds int64) MetricValue {
	return MetricValue{Kind: MetricDuration, Seconds: seconds}
}

// Metric pairs a vocabulary name with its parsed value.
type Metric struct {
	Name  string      `json:"name"`
	Value MetricValue `json:"value"`
}

// ExtractedReport is the parser output for one PDF. Metrics always contains
// every name of the detected kind's vocabulary, in vocabulary order; names
// whose value could not be recovered carry an Unavailable value and a
// matching entry in ExtractionErrors.
type ExtractedReport struct {
	BusinessName     string     `json:"business_name"`
	PeriodEnd        time.Time  `json:"report_period_end"`
	Kind             ReportKind `json:"report_kind"`
	Metrics          []Metric   `json:"metrics"`
	ExtractionErrors []string   `json:"extraction_errors"`
	SourceFile       string     `json:"source_file,omitempty"`
}

// Metric returns the named metric value when present.
func (r *ExtractedReport) Metric(name string) (MetricValue, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m.Value, true
		}
	}
	return MetricValue{}, false
}

// Partial reports whether any extraction error was recorded.
func (r *ExtractedReport) Partial() bool {
	return len(r.ExtractionErrors) > 0
}

// Period formats the reporting month as YYYY-MM, the ledger key component.
func (r *ExtractedReport) Period() string {
	if r.PeriodEnd.IsZero() {
		return ""
	}
	return r.PeriodEnd.Format("2006-01")
}
