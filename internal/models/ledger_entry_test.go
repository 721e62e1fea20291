package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntryDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024-03-09", "2024-03-09", true},
		{" 2024-03-09 ", "2024-03-09", true},
		{"2024-03-09T23:30:00Z", "2024-03-09", true},
		{"2024-03-09 08:00:00", "2024-03-09", true},
		{"09.03.2024", "2024-03-09", true},
		{"03/09/2024", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseEntryDate(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, d.String())
			}
		})
	}
}

func TestLedgerEntry_BeforeCreateNormalizesDate(t *testing.T) {
	e := &LedgerEntry{EntryDate: "31.01.2024"}
	assert.NoError(t, e.BeforeCreate(nil))
	assert.Equal(t, "2024-01-31", e.EntryDate)
	if assert.NotNil(t, e.EntryOn) {
		assert.Equal(t, "2024-01-31", e.EntryOn.Format("2006-01-02"))
	}

	bad := &LedgerEntry{EntryDate: "soon"}
	assert.NoError(t, bad.BeforeCreate(nil))
	assert.Equal(t, "soon", bad.EntryDate)
	assert.Nil(t, bad.EntryOn)
}
