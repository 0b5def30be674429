package models

import (
	"encoding/json"
	"testing"

	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/stretchr/testify/assert"
)

func TestFoodItem_State(t *testing.T) {
	tests := []struct {
		name string
		item FoodItem
		want DetailState
	}{
		{name: "new", item: FoodItem{}, want: DetailPending},
		{name: "failed once", item: FoodItem{ErrorCount: 1}, want: DetailFailed},
		{name: "at budget", item: FoodItem{ErrorCount: MaxDetailErrors}, want: DetailFailed},
		{name: "over budget", item: FoodItem{ErrorCount: MaxDetailErrors + 1}, want: DetailExhausted},
		{name: "fetched after failures", item: FoodItem{ErrorCount: 9, Detail: json.RawMessage(`{}`)}, want: DetailFetched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.State())
		})
	}
}

func TestFailureOutcome_String(t *testing.T) {
	assert.Equal(t, "recorded", FailureRecorded.String())
	assert.Equal(t, "not_found", FailureNotFound.String())
	assert.Equal(t, "unknown", FailureOutcome(0).String())
}

func TestFDCSettings_CloneIsDeep(t *testing.T) {
	s := FDCSettings{EnabledDataTypes: []fdc.DataType{fdc.DataTypeFoundation}}
	c := s.Clone()
	c.EnabledDataTypes[0] = fdc.DataTypeBranded
	assert.Equal(t, fdc.DataTypeFoundation, s.EnabledDataTypes[0])
}
