package codelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKnownCodes(t *testing.T) {
	tests := []struct {
		field string
		code  string
		ok    bool
	}{
		{"transaction_type", "1", true},
		{"transaction_type", "13", true},
		{"transaction_type", "14", false},
		{"transaction_type", "99", false},
		{"aid_type", "C01", true},
		{"aid_type", "Z99", false},
		{"flow_type", "10", true},
		{"flow_type", "11", false},
		{"finance_type", "110", true},
		{"disbursement_channel", "4", true},
		{"disbursement_channel", "5", false},
		{"tied_status", "5", true},
		{"tied_status", "1", false},
		{"organisation_type", "10", true},
		{"organisation_type", "23", true},
		{"organisation_type", "25", false},
		{"sector_vocabulary", "1", true},
		{"sector_vocabulary", "99", true},
		{"sector_vocabulary", "100", false},
		{"activity_status", "2", true},
		{"activity_status", "7", false},
	}

	for _, tt := range tests {
		ok, reason := Validate(tt.field, tt.code)
		assert.Equal(t, tt.ok, ok, "%s=%s", tt.field, tt.code)
		if !tt.ok {
			assert.NotEmpty(t, reason, "%s=%s should carry a reason", tt.field, tt.code)
		}
	}
}

func TestValidateUncontrolledField(t *testing.T) {
	// Fields without a codelist are not vocabulary-checked.
	ok, reason := Validate("title", "anything")
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidateEmptyCode(t *testing.T) {
	// Absence is the normalizer's concern, never a vocabulary violation.
	ok, _ := Validate("transaction_type", "")
	assert.True(t, ok)
}

func TestHas(t *testing.T) {
	assert.True(t, Has("transaction_type"))
	assert.True(t, Has("sector_vocabulary"))
	assert.False(t, Has("title"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Disbursement", Describe("transaction_type", "3"))
	assert.Equal(t, "Untied", Describe("tied_status", "5"))
	assert.Empty(t, Describe("transaction_type", "99"))
}

func TestFields(t *testing.T) {
	fields := Fields()
	assert.Contains(t, fields, "transaction_type")
	assert.Contains(t, fields, "organisation_type")
	// Sorted for deterministic diagnostics output.
	assert.IsNonDecreasing(t, fields)
}
