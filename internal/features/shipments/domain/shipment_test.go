package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBackfillField covers the back-fill-or-same metadata policy.
func TestBackfillField(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		incoming    string
		want        string
		wantChanged bool
	}{
		{"FillEmpty", "", "AWB123", "AWB123", true},
		{"SameValue", "AWB123", "AWB123", "AWB123", false},
		{"EmptyIncoming", "AWB123", "", "AWB123", false},
		{"ConflictKeepsStored", "AWB123", "AWB999", "AWB123", false},
		{"BothEmpty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := BackfillField(tt.current, tt.incoming)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

// TestEqualEvents verifies element-wise comparison of event logs.
func TestEqualEvents(t *testing.T) {
	a := scanFixture()
	b := scanFixture()

	assert.True(t, EqualEvents(a, b))
	assert.True(t, EqualEvents(nil, nil))
	assert.True(t, EqualEvents(nil, []ShipmentEvent{}))
	assert.False(t, EqualEvents(a, b[:1]))

	b[1].Location = "Nagpur Hub"
	assert.False(t, EqualEvents(a, b))
}
