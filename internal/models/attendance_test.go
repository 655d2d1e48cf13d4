package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCriteriaAcceptsPlainDates(t *testing.T) {
	var f FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"fromDate":"2024-03-01","toDate":"2024-03-31T23:59:59+04:00","department":"d-1"}`), &f))

	require.NotNil(t, f.FromDate)
	require.NotNil(t, f.ToDate)
	assert.True(t, f.FromDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, f.ToDate.Equal(time.Date(2024, 3, 31, 19, 59, 59, 0, time.UTC)))
	assert.Equal(t, "d-1", f.DepartmentID)
}

func TestFilterCriteriaRoundTripsThroughStoredParams(t *testing.T) {
	var f FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"fromDate":"2024-03-01","employees":["E1","E2"]}`), &f))

	raw, err := json.Marshal(f)
	require.NoError(t, err)

	var back FilterCriteria
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NotNil(t, back.FromDate)
	assert.True(t, back.FromDate.Equal(*f.FromDate))
	assert.Nil(t, back.ToDate)
	assert.Equal(t, []string{"E1", "E2"}, back.EmployeeIDs)
}

func TestFilterCriteriaRejectsUnknownDateFormat(t *testing.T) {
	var f FilterCriteria
	err := json.Unmarshal([]byte(`{"fromDate":"01-03-2024"}`), &f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fromDate")
}

func TestFilterCriteriaEmptyDateIsUnset(t *testing.T) {
	var f FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"fromDate":"","toDate":null}`), &f))
	assert.Nil(t, f.FromDate)
	assert.Nil(t, f.ToDate)
}
