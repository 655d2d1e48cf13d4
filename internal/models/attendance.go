package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field keys as named by the attendance backend.
const (
	FieldEmployeeID        = "employee_id"
	FieldEmployeeNumber    = "employee_number"
	FieldFirstName         = "firstname_eng"
	FieldLastName          = "lastname_eng"
	FieldOrganization      = "organization_eng"
	FieldDepartment        = "department_name_eng"
	FieldParentOrg         = "parent_org_eng"
	FieldTransDate         = "transdate"
	FieldPunchIn           = "punch_in"
	FieldPunchOut          = "punch_out"
	FieldDailyWorkHrs      = "dailyworkhrs"
	FieldDailyWorkMts      = "dailyworkmts"
	FieldDailyMissedHrs    = "DailyMissedHrs"
	FieldDailyMissedMts    = "dailymissedmts"
	FieldDailyExtraWork    = "dailyextrawork"
	FieldDailyExtraMts     = "dailyextramts"
	FieldLate              = "late"
	FieldEarly             = "early"
	FieldIsAbsent          = "isabsent"
	FieldMissedPunch       = "MissedPunch"
	FieldRemarks           = "remarks"
	FieldScheduleName      = "schedule_name"
	FieldEmployeeType      = "employee_type_eng"
	FieldManagerName       = "manager_name_eng"
	FieldDesignation       = "designation_eng"
	FieldVertical          = "vertical_eng"
	FieldCompany           = "company_eng"
	FieldAttendanceComment = "comment"
)

// AttendanceRecord is one employee-day as returned by the backend. Records are
// read-only inside the export pipeline.
type AttendanceRecord struct {
	EmployeeID     Value `json:"employee_id"`
	EmployeeNumber Value `json:"employee_number" validate:"required"`
	FirstName      Value `json:"firstname_eng"`
	LastName       Value `json:"lastname_eng"`
	Organization   Value `json:"organization_eng"`
	Department     Value `json:"department_name_eng"`
	ParentOrg      Value `json:"parent_org_eng"`
	Company        Value `json:"company_eng"`
	Vertical       Value `json:"vertical_eng"`
	Designation    Value `json:"designation_eng"`
	EmployeeType   Value `json:"employee_type_eng"`
	ManagerName    Value `json:"manager_name_eng"`
	ScheduleName   Value `json:"schedule_name"`
	TransDate      Value `json:"transdate" validate:"required"`
	PunchIn        Value `json:"punch_in"`
	PunchOut       Value `json:"punch_out"`
	DailyWorkHrs   Value `json:"dailyworkhrs"`
	DailyWorkMts   Value `json:"dailyworkmts"`
	DailyMissedHrs Value `json:"DailyMissedHrs"`
	DailyMissedMts Value `json:"dailymissedmts"`
	DailyExtraWork Value `json:"dailyextrawork"`
	DailyExtraMts  Value `json:"dailyextramts"`
	Late           Value `json:"late"`
	Early          Value `json:"early"`
	IsAbsent       Value `json:"isabsent"`
	MissedPunch    Value `json:"MissedPunch"`
	Remarks        Value `json:"remarks"`
	Comment        Value `json:"comment"`
}

// Field returns the raw value stored under a backend key.
func (r *AttendanceRecord) Field(key string) Value {
	switch key {
	case FieldEmployeeID:
		return r.EmployeeID
	case FieldEmployeeNumber:
		return r.EmployeeNumber
	case FieldFirstName:
		return r.FirstName
	case FieldLastName:
		return r.LastName
	case FieldOrganization:
		return r.Organization
	case FieldDepartment:
		return r.Department
	case FieldParentOrg:
		return r.ParentOrg
	case FieldCompany:
		return r.Company
	case FieldVertical:
		return r.Vertical
	case FieldDesignation:
		return r.Designation
	case FieldEmployeeType:
		return r.EmployeeType
	case FieldManagerName:
		return r.ManagerName
	case FieldScheduleName:
		return r.ScheduleName
	case FieldTransDate:
		return r.TransDate
	case FieldPunchIn:
		return r.PunchIn
	case FieldPunchOut:
		return r.PunchOut
	case FieldDailyWorkHrs:
		return r.DailyWorkHrs
	case FieldDailyWorkMts:
		return r.DailyWorkMts
	case FieldDailyMissedHrs:
		return r.DailyMissedHrs
	case FieldDailyMissedMts:
		return r.DailyMissedMts
	case FieldDailyExtraWork:
		return r.DailyExtraWork
	case FieldDailyExtraMts:
		return r.DailyExtraMts
	case FieldLate:
		return r.Late
	case FieldEarly:
		return r.Early
	case FieldIsAbsent:
		return r.IsAbsent
	case FieldMissedPunch:
		return r.MissedPunch
	case FieldRemarks:
		return r.Remarks
	case FieldAttendanceComment:
		return r.Comment
	default:
		return Value{}
	}
}

// FilterCriteria is the export scope chosen by the user. Every field is
// optional; the zero value means all records in the default scope.
type FilterCriteria struct {
	FromDate       *time.Time `json:"fromDate,omitempty"`
	ToDate         *time.Time `json:"toDate,omitempty"`
	EmployeeID     string     `json:"employee,omitempty"`
	EmployeeIDs    []string   `json:"employees,omitempty"`
	CompanyID      string     `json:"company,omitempty"`
	DivisionID     string     `json:"division,omitempty"`
	DepartmentID   string     `json:"department,omitempty"`
	VerticalID     string     `json:"vertical,omitempty"`
	ManagerID      string     `json:"manager,omitempty"`
	EmployeeTypeID string     `json:"employeeType,omitempty"`

	// Search terms only narrow dropdown choices in the UI and are never sent upstream.
	EmployeeSearch string `json:"employeeSearch,omitempty"`
	ManagerSearch  string `json:"managerSearch,omitempty"`
}

// filterDateLayouts are accepted for fromDate and toDate, full timestamps first.
var filterDateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

// UnmarshalJSON accepts fromDate and toDate either as RFC 3339 timestamps or
// as plain yyyy-MM-dd dates, which are taken as midnight UTC.
func (f *FilterCriteria) UnmarshalJSON(data []byte) error {
	type plain FilterCriteria
	aux := struct {
		*plain
		FromDate *string `json:"fromDate,omitempty"`
		ToDate   *string `json:"toDate,omitempty"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	from, err := parseFilterDate("fromDate", aux.FromDate)
	if err != nil {
		return err
	}
	to, err := parseFilterDate("toDate", aux.ToDate)
	if err != nil {
		return err
	}
	f.FromDate, f.ToDate = from, to
	return nil
}

func parseFilterDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range filterDateLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is neither RFC 3339 nor yyyy-MM-dd", field, *raw)
}

// AttendancePage is one page of records plus the pagination hints the
// backend chose to send. Total and HasNext are nil when absent.
type AttendancePage struct {
	Records []AttendanceRecord
	Total   *int
	HasNext *bool
}

// ExportBatch tracks pagination state across one fetch loop.
type ExportBatch struct {
	Records []AttendanceRecord
	Offset  int
	Limit   int
	HasNext bool
	Total   int
}

// SummaryTotals are aggregate durations over a whole export, formatted HH:MM.
type SummaryTotals struct {
	TotalLateInHours     string `json:"totalLateInHours"`
	TotalWorkedInHours   string `json:"totalWorkedInHours"`
	TotalEarlyOutInHours string `json:"totalEarlyOutInHours"`
	TotalMissedInHours   string `json:"totalMissedInHours"`
	TotalExtraInHours    string `json:"totalExtraInHours"`
	TotalAbsents         string `json:"totalAbsents"`
}

// ExportPhase is a step of the export lifecycle, in order.
type ExportPhase string

const (
	PhaseInitializing ExportPhase = "initializing"
	PhaseFetching     ExportPhase = "fetching"
	PhaseProcessing   ExportPhase = "processing"
	PhaseGenerating   ExportPhase = "generating"
	PhaseComplete     ExportPhase = "complete"
)

// Rank orders phases so progress never moves backward.
func (p ExportPhase) Rank() int {
	switch p {
	case PhaseInitializing:
		return 0
	case PhaseFetching:
		return 1
	case PhaseProcessing:
		return 2
	case PhaseGenerating:
		return 3
	case PhaseComplete:
		return 4
	default:
		return -1
	}
}
