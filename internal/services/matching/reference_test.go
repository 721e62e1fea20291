package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"marker then prefixed code", "Invoice INV-1042 payment", "1042"},
		{"prefixed code first", "INV-1042 supplier invoice", "1042"},
		{"receipt number", "Receipt no. 12345 thanks", "12345"},
		{"alphanumeric code", "Payment for invoice #AB12CD", "AB12CD"},
		{"letters-only code", "Invoice ABCDE", "ABCDE"},
		{"lowercase receipt code", "receipt abcde", "abcde"},
		{"german marker", "Rechnung Nr. 2024117", "2024117"},
		{"number keyword skipped", "invoice number 55501", "55501"},
		{"non-invoice marker ignored", "order 88123 shipped", ""},
		{"short code", "inv 12", ""},
		{"po fallback", "RE: PO-12345 delivery", "PO-12345"},
		{"lowercase fallback", "ref to po-777", "po-777"},
		{"nothing", "coffee shop", ""},
		{"empty", "", ""},
		{"marker inside word ignored", "Reinvoiced 9999", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReference(tt.text))
		})
	}
}

func TestSameReference(t *testing.T) {
	assert.True(t, SameReference("PO-12345", "po-12345"))
	assert.False(t, SameReference("", ""))
	assert.False(t, SameReference("1042", ""))
	assert.False(t, SameReference("1042", "1043"))
	assert.True(t, SameReference(ExtractReference("Invoice ABCDE"), ExtractReference("receipt abcde")))
}
