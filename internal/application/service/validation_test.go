package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/record-review/pkg/utils"
)

type tagged struct {
	Type    string `validate:"required,record_type"`
	Status  string `validate:"omitempty,record_status"`
	Role    string `validate:"omitempty,approver_role"`
	Code    string `validate:"omitempty,accounting_code"`
	GroupBy string `validate:"omitempty,group_by"`
}

func TestNewValidator_RecordTags(t *testing.T) {
	v := newValidator()

	require.NoError(t, v.Struct(tagged{Type: "TRIP", Status: "VERIFIED", Role: "verifier", Code: "4210", GroupBy: "category"}))

	tests := []struct {
		name  string
		in    tagged
		field string
	}{
		{"unknown type", tagged{Type: "INVOICE"}, "Type"},
		{"missing type", tagged{}, "Type"},
		{"unknown status", tagged{Type: "TRIP", Status: "PAID"}, "Status"},
		{"unknown role", tagged{Type: "TRIP", Role: "owner"}, "Role"},
		{"non numeric code", tagged{Type: "TRIP", Code: "42a0"}, "Code"},
		{"unknown group by", tagged{Type: "TRIP", GroupBy: "branch"}, "GroupBy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			require.Error(t, err)
			assert.Contains(t, utils.FormatValidationError(err), tt.field)
		})
	}
}
