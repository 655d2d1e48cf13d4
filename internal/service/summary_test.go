package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

func TestCalculateSummaryTotalsMinutes(t *testing.T) {
	records := []models.AttendanceRecord{
		{Late: models.NumberValue(30), DailyWorkMts: models.NumberValue(480), DailyExtraMts: models.StringValue("45")},
		{Late: models.NumberValue(45), DailyWorkMts: models.NumberValue(470.5), Early: models.NumberValue(10)},
		{Late: models.NumberValue(0), DailyMissedMts: models.StringValue("01:30:00")},
	}
	totals := CalculateSummaryTotals(records, ConventionMinutes)
	assert.Equal(t, models.SummaryTotals{
		TotalLateInHours:     "01:15",
		TotalWorkedInHours:   "15:51",
		TotalEarlyOutInHours: "00:10",
		TotalMissedInHours:   "01:30",
		TotalExtraInHours:    "00:45",
		TotalAbsents:         "00:00",
	}, totals)
}

func TestCalculateSummaryTotalsDuration(t *testing.T) {
	records := []models.AttendanceRecord{
		{Late: models.StringValue("00:30:00"), DailyWorkHrs: models.NumberValue(8.5), DailyMissedHrs: models.StringValue("0.5")},
		{Late: models.StringValue("00:45:30"), DailyWorkHrs: models.StringValue("07:30"), DailyExtraWork: models.NumberValue(1.25)},
	}
	totals := CalculateSummaryTotals(records, ConventionDuration)
	assert.Equal(t, "01:16", totals.TotalLateInHours)
	assert.Equal(t, "16:00", totals.TotalWorkedInHours)
	assert.Equal(t, "00:30", totals.TotalMissedInHours)
	assert.Equal(t, "01:15", totals.TotalExtraInHours)
	assert.Equal(t, "00:00", totals.TotalEarlyOutInHours)
}

func TestSummaryAccumulatorMatchesBatchCalculation(t *testing.T) {
	records := make([]models.AttendanceRecord, 0, 10)
	for i := 0; i < 10; i++ {
		records = append(records, models.AttendanceRecord{Late: models.NumberValue(float64(i * 7))})
	}
	acc := NewSummaryAccumulator(ConventionMinutes)
	acc.AddAll(records[:4])
	acc.AddAll(records[4:])
	require.Equal(t, 10, acc.Count())
	require.Equal(t, CalculateSummaryTotals(records, ConventionMinutes), acc.Totals())
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "00:00", FormatMinutes(0))
	assert.Equal(t, "01:15", FormatMinutes(75))
	assert.Equal(t, "01:15", FormatMinutes(-75))
	assert.Equal(t, "02:00", FormatMinutes(119.6))
	assert.Equal(t, "100:05", FormatMinutes(6005))
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 90.0, DurationMinutes(models.StringValue("01:30:00")))
	assert.Equal(t, 90.0, DurationMinutes(models.NumberValue(1.5)))
	assert.Equal(t, -30.0, DurationMinutes(models.StringValue("-00:30")))
	assert.Equal(t, 0.0, DurationMinutes(models.StringValue("soon")))
	assert.Equal(t, 0.0, DurationMinutes(models.Value{}))
}
