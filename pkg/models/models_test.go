package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorResult_ItemExists(t *testing.T) {
	task := Task{Seq: 2, URL: "https://blog.csdn.net/u/article/details/1"}

	tests := []struct {
		status     int
		wantExists bool
	}{
		{404, false},
		{500, true},
		{403, true},
		{200, true},
	}
	for _, tt := range tests {
		r := NewErrorResult(task, "boom", tt.status)
		assert.False(t, r.Success)
		assert.Empty(t, r.SanitizedHTML)
		assert.Equal(t, tt.wantExists, r.ItemExists, "status %d", tt.status)
		assert.Equal(t, 2, r.Seq)
		assert.False(t, r.ProducedAt.IsZero())
	}
}

func TestResult_Status(t *testing.T) {
	assert.Equal(t, ResultStatusSuccess, Result{Success: true, ItemExists: true}.Status())
	assert.Equal(t, ResultStatusNotFound, Result{ItemExists: false}.Status())
	assert.Equal(t, ResultStatusFailure, Result{ItemExists: true}.Status())
}

func TestResult_JSONOmitsHTML(t *testing.T) {
	r := Result{Success: true, URL: "u", SanitizedHTML: "<p>x</p>", HTTPStatus: 200, ItemExists: true, ProducedAt: time.Now().UTC()}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<p>x</p>")
	assert.NotContains(t, string(data), "\"error\"")
}

func TestBatchState_Done(t *testing.T) {
	assert.False(t, BatchState{}.Done())
	assert.False(t, BatchState{Total: 3, Completed: 2}.Done())
	assert.True(t, BatchState{Total: 3, Completed: 3}.Done())
}

func TestResultStatus_StringAndValid(t *testing.T) {
	tests := []struct {
		status    ResultStatus
		wantStr   string
		wantValid bool
	}{
		{ResultStatusUnset, "unset", false},
		{ResultStatusSuccess, "success", true},
		{ResultStatusFailure, "failure", true},
		{ResultStatusNotFound, "not_found", true},
		{ResultStatus("arbitrary"), "arbitrary", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantStr, tt.status.String())
		assert.Equal(t, tt.wantValid, tt.status.IsValid())
	}
}
