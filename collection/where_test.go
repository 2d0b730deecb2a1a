package collection

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseWhere(t *testing.T) {
	where, err := ParseWhere(map[string]any{
		"name": "bob",
		"age":  map[string]any{"$gte": 18.0, "$lt": 65.0, "$like": "x"},
		"role": map[string]any{"$in": "admin"},
		"tier": map[string]any{"$nin": []any{"free", "trial"}},
		"note": map[string]any{"$eq": nil},
	})
	if err != nil {
		t.Fatalf("ParseWhere failed: %v", err)
	}

	want := Where{
		"name": {OpEq: "bob"},
		"age":  {OpGte: 18.0, OpLt: 65.0},
		"role": {OpIn: []any{"admin"}},
		"tier": {OpNin: []any{"free", "trial"}},
		"note": {},
	}
	if !reflect.DeepEqual(where, want) {
		t.Errorf("ParseWhere = %#v\nwant %#v", where, want)
	}

	if got := where.Fields(); !reflect.DeepEqual(got, []string{"age", "name", "note", "role", "tier"}) {
		t.Errorf("Fields() = %v", got)
	}
}

func TestParseWhereShorthandNull(t *testing.T) {
	where, err := ParseWhere(map[string]any{"deleted": nil})
	if err != nil {
		t.Fatal(err)
	}
	operand, ok := where["deleted"][OpEq]
	if !ok || operand != nil {
		t.Errorf("expected $eq null, got %#v", where["deleted"])
	}
}

func TestParseWhereRejectsNonObject(t *testing.T) {
	if where, err := ParseWhere(nil); err != nil || len(where) != 0 {
		t.Errorf("nil query: where=%v err=%v", where, err)
	}
	if _, err := ParseWhere([]any{"x"}); !errors.Is(err, ErrCollectionInputData) {
		t.Errorf("expected ErrCollectionInputData, got %v", err)
	}
}
