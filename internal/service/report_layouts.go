package service

import (
	"fmt"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

// Column is one output column bound to a backend field.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// ReportLayout is the per-variant configuration the generic exporter runs on.
type ReportLayout struct {
	Variant    models.ReportVariant
	Title      string
	Columns    []Column
	Details    []Column
	Convention SummaryConvention
}

// Headers returns the column titles in order.
func (l ReportLayout) Headers() []string {
	headers := make([]string, len(l.Columns))
	for i, col := range l.Columns {
		headers[i] = col.Header
	}
	return headers
}

var reportLayouts = map[models.ReportVariant]ReportLayout{
	models.ReportVariantDailyAttendance: {
		Variant: models.ReportVariantDailyAttendance,
		Title:   "Daily Attendance Report",
		Columns: []Column{
			{Key: models.FieldEmployeeNumber, Header: "Employee No", Width: 14},
			{Key: models.FieldFirstName, Header: "Employee Name", Width: 24},
			{Key: models.FieldOrganization, Header: "Organization", Width: 22},
			{Key: models.FieldDepartment, Header: "Department", Width: 22},
			{Key: models.FieldTransDate, Header: "Date", Width: 12},
			{Key: models.FieldPunchIn, Header: "Punch In", Width: 10},
			{Key: models.FieldPunchOut, Header: "Punch Out", Width: 10},
			{Key: models.FieldDailyWorkHrs, Header: "Work Hours", Width: 11},
			{Key: models.FieldLate, Header: "Late", Width: 10},
			{Key: models.FieldEarly, Header: "Early Out", Width: 10},
			{Key: models.FieldDailyMissedHrs, Header: "Missed Hours", Width: 12},
			{Key: models.FieldDailyExtraWork, Header: "Extra Work", Width: 11},
			{Key: models.FieldIsAbsent, Header: "Absent", Width: 8},
			{Key: models.FieldMissedPunch, Header: "Missed Punch", Width: 12},
			{Key: models.FieldRemarks, Header: "Remarks", Width: 20},
		},
		Convention: ConventionMinutes,
	},
	models.ReportVariantEmployeeAttendance: {
		Variant: models.ReportVariantEmployeeAttendance,
		Title:   "Employee Attendance Report",
		Columns: []Column{
			{Key: models.FieldTransDate, Header: "Date", Width: 12},
			{Key: models.FieldScheduleName, Header: "Schedule", Width: 18},
			{Key: models.FieldPunchIn, Header: "Punch In", Width: 10},
			{Key: models.FieldPunchOut, Header: "Punch Out", Width: 10},
			{Key: models.FieldDailyWorkHrs, Header: "Work Hours", Width: 11},
			{Key: models.FieldLate, Header: "Late", Width: 10},
			{Key: models.FieldEarly, Header: "Early Out", Width: 10},
			{Key: models.FieldDailyMissedHrs, Header: "Missed Hours", Width: 12},
			{Key: models.FieldDailyExtraWork, Header: "Extra Work", Width: 11},
			{Key: models.FieldIsAbsent, Header: "Absent", Width: 8},
			{Key: models.FieldRemarks, Header: "Remarks", Width: 20},
			{Key: models.FieldAttendanceComment, Header: "Comment", Width: 24},
		},
		Details: []Column{
			{Key: models.FieldEmployeeNumber, Header: "Employee No"},
			{Key: models.FieldFirstName, Header: "Employee Name"},
			{Key: models.FieldDesignation, Header: "Designation"},
			{Key: models.FieldOrganization, Header: "Organization"},
			{Key: models.FieldDepartment, Header: "Department"},
			{Key: models.FieldManagerName, Header: "Manager"},
		},
		Convention: ConventionDuration,
	},
	models.ReportVariantWorkHours: {
		Variant: models.ReportVariantWorkHours,
		Title:   "Work Hours Report",
		Columns: []Column{
			{Key: models.FieldEmployeeNumber, Header: "Employee No", Width: 14},
			{Key: models.FieldFirstName, Header: "Employee Name", Width: 24},
			{Key: models.FieldParentOrg, Header: "Parent Organization", Width: 22},
			{Key: models.FieldOrganization, Header: "Organization", Width: 22},
			{Key: models.FieldDepartment, Header: "Department", Width: 22},
			{Key: models.FieldEmployeeType, Header: "Employee Type", Width: 16},
			{Key: models.FieldTransDate, Header: "Date", Width: 12},
			{Key: models.FieldDailyWorkMts, Header: "Worked", Width: 10},
			{Key: models.FieldDailyMissedMts, Header: "Missed", Width: 10},
			{Key: models.FieldDailyExtraMts, Header: "Extra", Width: 10},
		},
		Convention: ConventionMinutes,
	},
}

// LayoutFor returns the configuration of a report variant.
func LayoutFor(variant models.ReportVariant) (ReportLayout, error) {
	layout, ok := reportLayouts[variant]
	if !ok {
		return ReportLayout{}, fmt.Errorf("unknown report variant %q", variant)
	}
	return layout, nil
}
