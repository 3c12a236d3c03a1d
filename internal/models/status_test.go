package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoanStatus_Terminal(t *testing.T) {
	var open []LoanStatus
	for _, s := range AllStatuses {
		if !s.Terminal() {
			open = append(open, s)
		}
	}
	assert.Equal(t, []LoanStatus{StatusActive, StatusDue, StatusPastDue}, open)
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, User{Role: AdminRole}.IsAdmin())
	assert.False(t, User{Role: EmployeeRole}.IsAdmin())
}
