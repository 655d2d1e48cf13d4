package service

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

const (
	zeroDuration     = "00:00:00"
	sourceDateLayout = "2006-01-02"
	cellDateLayout   = "02-01-2006"
	cellTimeLayout   = "15:04:05"
)

var clockPattern = regexp.MustCompile(`^(\d+):(\d{1,2})(?::(\d{1,2}))?(?:\.\d+)?$`)

// ColumnKind selects the transform applied to a column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindDate
	KindPunch
	KindDuration
)

var columnKinds = map[string]ColumnKind{
	models.FieldTransDate:      KindDate,
	models.FieldPunchIn:        KindPunch,
	models.FieldPunchOut:       KindPunch,
	models.FieldLate:           KindDuration,
	models.FieldEarly:          KindDuration,
	models.FieldDailyWorkHrs:   KindDuration,
	models.FieldDailyWorkMts:   KindDuration,
	models.FieldDailyMissedHrs: KindDuration,
	models.FieldDailyMissedMts: KindDuration,
	models.FieldDailyExtraWork: KindDuration,
	models.FieldDailyExtraMts:  KindDuration,
}

// KindOf reports the transform used for a backend field key.
func KindOf(key string) ColumnKind {
	return columnKinds[key]
}

// RowFormatter renders record fields as display strings. Dates and punch
// timestamps that carry a zone are shifted into Location.
type RowFormatter struct {
	Location *time.Location
}

// NewRowFormatter builds a formatter for the named IANA zone; unknown or empty
// names fall back to UTC.
func NewRowFormatter(zone string) *RowFormatter {
	loc := time.UTC
	if zone != "" {
		if l, err := time.LoadLocation(zone); err == nil {
			loc = l
		}
	}
	return &RowFormatter{Location: loc}
}

var defaultFormatter = &RowFormatter{Location: time.UTC}

// FormatCell renders raw for the column identified by key using UTC.
func FormatCell(key string, raw models.Value) string {
	return defaultFormatter.FormatCell(key, raw)
}

// FormatCell renders raw for the column identified by key. It never fails:
// malformed values degrade to an empty string, the raw text or 00:00:00.
func (f *RowFormatter) FormatCell(key string, raw models.Value) string {
	switch KindOf(key) {
	case KindDate:
		return f.formatDate(raw)
	case KindPunch:
		return f.formatPunch(raw)
	case KindDuration:
		return FormatDuration(raw)
	default:
		if !raw.Truthy() {
			return ""
		}
		return raw.String()
	}
}

// FormatRow renders the record against an ordered column list.
func (f *RowFormatter) FormatRow(record *models.AttendanceRecord, columns []Column) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = f.FormatCell(col.Key, record.Field(col.Key))
	}
	return row
}

func (f *RowFormatter) formatDate(raw models.Value) string {
	if !raw.Truthy() {
		return ""
	}
	s := strings.TrimSpace(raw.String())
	if t, ok := parseZoned(s); ok {
		return t.In(f.location()).Format(cellDateLayout)
	}
	datePart := s
	if idx := strings.IndexAny(s, "T "); idx > 0 {
		datePart = s[:idx]
	}
	t, err := time.Parse(sourceDateLayout, datePart)
	if err != nil {
		return s
	}
	return t.Format(cellDateLayout)
}

func (f *RowFormatter) formatPunch(raw models.Value) string {
	if !raw.Truthy() {
		return ""
	}
	s := strings.TrimSpace(raw.String())
	if t, ok := parseZoned(s); ok {
		return t.In(f.location()).Format(cellTimeLayout)
	}
	h, m, sec, ok := parseClock(timePortion(s))
	if !ok {
		return s
	}
	return fmt.Sprintf("%02d:%02d:%02d", h%24, m, sec)
}

func (f *RowFormatter) location() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

// zonedLayouts are timestamps carrying an explicit offset.
var zonedLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999-0700"}

func parseZoned(s string) (time.Time, bool) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDuration renders a duration field as HH:MM:SS. Clock strings are
// normalized, numbers are decimal hours. Negative values render as their
// magnitude, the same way the summary totals them.
func FormatDuration(raw models.Value) string {
	if !raw.Truthy() {
		return zeroDuration
	}
	if !raw.IsNumber() {
		s := strings.TrimSpace(raw.String())
		if strings.Contains(s, ":") {
			h, m, sec, ok := parseClock(timePortion(strings.TrimPrefix(s, "-")))
			if !ok {
				return zeroDuration
			}
			return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
		}
	}
	hours, ok := raw.Float()
	if !ok || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return zeroDuration
	}
	return secondsToClock(int64(math.Round(math.Abs(hours) * 3600)))
}

func secondsToClock(total int64) string {
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// timePortion extracts the clock part of a date-time-like string, dropping
// the date, a trailing zone designator and sub-second precision.
func timePortion(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, 'T'); idx >= 0 {
		s = s[idx+1:]
	} else if idx := strings.LastIndexByte(s, ' '); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(s, "Z")
	if idx := strings.IndexAny(s, "+-"); idx > 0 {
		s = s[:idx]
	}
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

func parseClock(s string) (int, int, int, bool) {
	match := clockPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, 0, 0, false
	}
	h, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, 0, false
	}
	m, _ := strconv.Atoi(match[2])
	sec := 0
	if match[3] != "" {
		sec, _ = strconv.Atoi(match[3])
	}
	if m > 59 || sec > 59 {
		return 0, 0, 0, false
	}
	return h, m, sec, true
}
