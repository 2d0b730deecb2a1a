package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kartikbazzad/bunbase/bunstore/collection"
)

func newEvents(t *testing.T) (*Store, *collection.Collection) {
	t.Helper()
	s := NewStore()
	c, err := s.CreateCollection(context.Background(), "events", []collection.Field{
		{Name: "at", FieldType: collection.TimeStamp},
		{Name: "meta", FieldType: collection.Object},
		{Name: "score", FieldType: collection.Number},
	})
	if err != nil {
		t.Fatalf("CreateCollection failed: %v", err)
	}
	return s, c
}

func TestTimeStampRoundTrip(t *testing.T) {
	s, c := newEvents(t)
	ctx := context.Background()

	row, err := s.InsertData(ctx, c, map[string]any{"at": "2024-05-01T10:00:00+02:00"})
	if err != nil {
		t.Fatal(err)
	}
	at, ok := row["at"].(map[string]any)
	if !ok {
		t.Fatalf("expected tagged timestamp, got %#v", row["at"])
	}
	if at["__type"] != "TimeStamp" || at["value"] != "2024-05-01T08:00:00Z" {
		t.Errorf("unexpected timestamp %v", at)
	}
	if _, ok := row["created_at"].(map[string]any); !ok {
		t.Errorf("created_at not tagged: %#v", row["created_at"])
	}

	rows, err := s.ListData(ctx, c, collection.Where{
		"at": {collection.OpGte: at, collection.OpLt: "2024-05-02T00:00:00Z"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestNullNeverMatches(t *testing.T) {
	s, c := newEvents(t)
	ctx := context.Background()

	if _, err := s.InsertData(ctx, c, map[string]any{"score": 5.0}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertData(ctx, c, map[string]any{"score": nil}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		where collection.Where
		want  int
	}{
		{"ne skips null", collection.Where{"score": {collection.OpNe: 1.0}}, 1},
		{"eq null binds null", collection.Where{"score": {collection.OpEq: nil}}, 0},
		{"nin skips null", collection.Where{"score": {collection.OpNin: []any{1.0}}}, 1},
		{"wrong kind", collection.Where{"score": {collection.OpEq: "5"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.ListData(ctx, c, tt.where)
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.want {
				t.Errorf("got %d rows, want %d", len(rows), tt.want)
			}
		})
	}
}

func TestObjectEquality(t *testing.T) {
	s, c := newEvents(t)
	ctx := context.Background()

	if _, err := s.InsertData(ctx, c, map[string]any{"meta": map[string]any{"a": 1.0, "b": []any{"x"}}}); err != nil {
		t.Fatal(err)
	}
	rows, err := s.ListData(ctx, c, collection.Where{"meta": {collection.OpEq: map[string]any{"b": []any{"x"}, "a": 1.0}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestListOrder(t *testing.T) {
	s, c := newEvents(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.InsertData(ctx, c, map[string]any{"id": id}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := s.ListData(ctx, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range rows {
		got = append(got, r["id"].(string))
	}
	if len(got) != 3 || got[0] != "c" || got[1] != "a" || got[2] != "b" {
		t.Errorf("order = %v, want [c a b]", got)
	}

	if _, err := s.InsertData(ctx, c, map[string]any{"id": "a"}); !errors.Is(err, collection.ErrQuery) {
		t.Errorf("expected duplicate id to fail, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	s, c := newEvents(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetData(ctx, c, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
