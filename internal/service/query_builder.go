package service

import (
	"net/url"
	"sort"
	"strings"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

const (
	paramFromDate       = "from_date"
	paramToDate         = "to_date"
	paramEmployeeID     = "employee_id"
	paramOrganizationID = "organization_id"
	paramManagerID      = "manager_id"
	paramEmployeeTypeID = "employee_type_id"
	paramLimit          = "limit"
	paramOffset         = "offset"

	queryDateLayout = "2006-01-02"
)

// BuildQueryParams translates export filters into upstream query parameters.
// Only one organization-scoped parameter is sent: the most specific level wins.
// An explicit employee list is serialized as a bracketed raw value and
// suppresses manager scoping.
func BuildQueryParams(filters models.FilterCriteria) map[string]string {
	params := make(map[string]string)

	if filters.FromDate != nil && !filters.FromDate.IsZero() {
		params[paramFromDate] = filters.FromDate.Format(queryDateLayout)
	}
	if filters.ToDate != nil && !filters.ToDate.IsZero() {
		params[paramToDate] = filters.ToDate.Format(queryDateLayout)
	}

	if org := firstNonEmpty(filters.DepartmentID, filters.DivisionID, filters.CompanyID, filters.VerticalID); org != "" {
		params[paramOrganizationID] = org
	}

	employees := nonEmpty(filters.EmployeeIDs)
	switch {
	case len(employees) > 0:
		params[paramEmployeeID] = "[" + strings.Join(employees, ",") + "]"
	case strings.TrimSpace(filters.EmployeeID) != "":
		params[paramEmployeeID] = strings.TrimSpace(filters.EmployeeID)
	}

	if len(employees) == 0 {
		setIfPresent(params, paramManagerID, filters.ManagerID)
	}
	setIfPresent(params, paramEmployeeTypeID, filters.EmployeeTypeID)

	return params
}

// BuildURL joins endpoint and params into a request path. Keys are emitted in
// sorted order; bracketed list values are written raw.
func BuildURL(endpoint string, params map[string]string) string {
	if len(params) == 0 {
		return endpoint
	}
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		value := params[key]
		if isBracketList(value) {
			parts = append(parts, url.QueryEscape(key)+"="+value)
			continue
		}
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + strings.Join(parts, "&")
}

func isBracketList(value string) bool {
	return len(value) >= 2 && strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]")
}

func setIfPresent(params map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		params[key] = value
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
