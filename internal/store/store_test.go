package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIn(t *testing.T) {
	cond := In("a", "b")
	if cond.Op != OpIn {
		t.Fatalf("expected IN, got %s", cond.Op)
	}
	values, ok := cond.Value.([]any)
	if !ok || len(values) != 2 || values[1] != "b" {
		t.Errorf("unexpected values %#v", cond.Value)
	}

	if empty := In[string](); len(empty.Value.([]any)) != 0 {
		t.Errorf("expected no values")
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		cond Cond
		op   Op
	}{
		{Ne(1), OpNe},
		{Gte(1), OpGte},
		{Lte(1), OpLte},
		{Lt(1), OpLt},
	}
	for _, tt := range tests {
		if tt.cond.Op != tt.op {
			t.Errorf("expected %s, got %s", tt.op, tt.cond.Op)
		}
	}
}

func TestUpdateEmpty(t *testing.T) {
	if !(Update{}).Empty() {
		t.Error("zero update should be empty")
	}
	if (Update{Set: map[string]any{FieldStatus: "FAILED"}}).Empty() {
		t.Error("set update should not be empty")
	}
	if (Update{Inc: map[string]decimal.Decimal{FieldBalance: decimal.NewFromInt(1)}}).Empty() {
		t.Error("inc update should not be empty")
	}
}

func TestNewestFirst(t *testing.T) {
	if len(NewestFirst) != 1 || NewestFirst[0].Field != FieldCreatedAt || !NewestFirst[0].Desc {
		t.Errorf("unexpected default order %+v", NewestFirst)
	}
}
