package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

// SummaryConvention decides how record fields are read into minutes.
type SummaryConvention int

const (
	// ConventionMinutes reads the *mts fields and late/early as raw minutes.
	ConventionMinutes SummaryConvention = iota
	// ConventionDuration reads the hour fields through a tolerant clock or
	// decimal-hours parser.
	ConventionDuration
)

const absentPlaceholder = "00:00"

type summaryFields struct {
	late, worked, early, missed, extra string
}

var conventionFields = map[SummaryConvention]summaryFields{
	ConventionMinutes: {
		late:   models.FieldLate,
		worked: models.FieldDailyWorkMts,
		early:  models.FieldEarly,
		missed: models.FieldDailyMissedMts,
		extra:  models.FieldDailyExtraMts,
	},
	ConventionDuration: {
		late:   models.FieldLate,
		worked: models.FieldDailyWorkHrs,
		early:  models.FieldEarly,
		missed: models.FieldDailyMissedHrs,
		extra:  models.FieldDailyExtraWork,
	},
}

// SummaryAccumulator keeps running totals in minutes. The zero value uses
// ConventionMinutes.
type SummaryAccumulator struct {
	convention SummaryConvention

	late   float64
	worked float64
	early  float64
	missed float64
	extra  float64
	count  int
}

// NewSummaryAccumulator returns an empty accumulator for convention.
func NewSummaryAccumulator(convention SummaryConvention) *SummaryAccumulator {
	return &SummaryAccumulator{convention: convention}
}

// Add folds one record into the totals.
func (a *SummaryAccumulator) Add(record *models.AttendanceRecord) {
	fields, ok := conventionFields[a.convention]
	if !ok {
		fields = conventionFields[ConventionMinutes]
	}
	read := a.minutes
	a.late += read(record.Field(fields.late))
	a.worked += read(record.Field(fields.worked))
	a.early += read(record.Field(fields.early))
	a.missed += read(record.Field(fields.missed))
	a.extra += read(record.Field(fields.extra))
	a.count++
}

// AddAll folds every record.
func (a *SummaryAccumulator) AddAll(records []models.AttendanceRecord) {
	for i := range records {
		a.Add(&records[i])
	}
}

// Count returns the number of records folded so far.
func (a *SummaryAccumulator) Count() int {
	return a.count
}

// Totals formats the running totals.
func (a *SummaryAccumulator) Totals() models.SummaryTotals {
	return models.SummaryTotals{
		TotalLateInHours:     FormatMinutes(a.late),
		TotalWorkedInHours:   FormatMinutes(a.worked),
		TotalEarlyOutInHours: FormatMinutes(a.early),
		TotalMissedInHours:   FormatMinutes(a.missed),
		TotalExtraInHours:    FormatMinutes(a.extra),
		TotalAbsents:         absentPlaceholder,
	}
}

func (a *SummaryAccumulator) minutes(v models.Value) float64 {
	if a.convention == ConventionDuration {
		return DurationMinutes(v)
	}
	return rawMinutes(v)
}

// CalculateSummaryTotals aggregates records under convention.
func CalculateSummaryTotals(records []models.AttendanceRecord, convention SummaryConvention) models.SummaryTotals {
	acc := NewSummaryAccumulator(convention)
	acc.AddAll(records)
	return acc.Totals()
}

// rawMinutes treats numbers as minutes. Clock strings are still accepted.
func rawMinutes(v models.Value) float64 {
	if !v.Truthy() {
		return 0
	}
	if !v.IsNumber() && strings.Contains(v.String(), ":") {
		return DurationMinutes(v)
	}
	n, ok := v.Float()
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// DurationMinutes converts a clock string (HH:MM[:SS]) or decimal hours into
// minutes. Unparsable input counts as zero.
func DurationMinutes(v models.Value) float64 {
	if !v.Truthy() {
		return 0
	}
	if !v.IsNumber() {
		s := strings.TrimSpace(v.String())
		if strings.Contains(s, ":") {
			negative := strings.HasPrefix(s, "-")
			h, m, sec, ok := parseClock(timePortion(strings.TrimPrefix(s, "-")))
			if !ok {
				return 0
			}
			total := float64(h*60+m) + float64(sec)/60
			if negative {
				return -total
			}
			return total
		}
	}
	hours, ok := v.Float()
	if !ok || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return 0
	}
	return hours * 60
}

// FormatMinutes renders minutes as HH:MM, dropping the sign. A remainder
// that rounds to 60 carries into the hour.
func FormatMinutes(total float64) string {
	total = math.Abs(total)
	hours := int64(math.Floor(total / 60))
	minutes := int64(math.Round(math.Mod(total, 60)))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
