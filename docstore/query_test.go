// ABOUTME: Tests for query validation and in-memory evaluation
// ABOUTME: Checks type ranking, tie breaking and window edges
package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryBuildersCopy(t *testing.T) {
	base := NewQuery("clients").Where("status", OpEqual, "active")
	a := base.Where("serviceType", OpEqual, "react")
	b := base.Where("serviceTier", OpEqual, "premium")

	assert.Len(t, base.Filters, 1)
	assert.Equal(t, "serviceType", a.Filters[1].Field)
	assert.Equal(t, "serviceTier", b.Filters[1].Field)
}

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr bool
	}{
		{"ok", NewQuery("clients").Where("aiAnalysis.priority", OpEqual, "high"), false},
		{"empty collection", NewQuery(""), true},
		{"slash collection", NewQuery("a/b"), true},
		{"bad field", NewQuery("clients").Where("a..b", OpEqual, 1), true},
		{"bad op", NewQuery("clients").Where("a", Op("!="), 1), true},
		{"bad order", NewQuery("clients").OrderBy("1abc", Ascending), true},
		{"negative window", NewQuery("clients").Window(-1, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyTieBreaksByID(t *testing.T) {
	docs := []Snapshot{
		{ID: "b", Fields: Fields{"name": "same"}},
		{ID: "a", Fields: Fields{"name": "same"}},
		{ID: "c", Fields: Fields{"name": "same"}},
	}

	asc := NewQuery("clients").OrderBy("name", Ascending).apply(docs)
	assert.Equal(t, []string{"a", "b", "c"}, ids(asc))

	desc := NewQuery("clients").OrderBy("name", Descending).apply(docs)
	assert.Equal(t, []string{"c", "b", "a"}, ids(desc))
}

func TestApplyMixedTypesOrderByRank(t *testing.T) {
	docs := []Snapshot{
		{ID: "s", Fields: Fields{"v": "text"}},
		{ID: "n", Fields: Fields{"v": float64(3)}},
		{ID: "z", Fields: Fields{"v": nil}},
		{ID: "b", Fields: Fields{"v": true}},
		{ID: "t", Fields: Fields{"v": Timestamp{Seconds: 5}}},
		{ID: "m", Fields: Fields{"v": map[string]interface{}{"k": 1}}},
	}

	got := NewQuery("things").OrderBy("v", Ascending).apply(docs)
	assert.Equal(t, []string{"z", "b", "n", "t", "s", "m"}, ids(got))
}

func TestApplyWindow(t *testing.T) {
	docs := []Snapshot{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, []string{"b"}, ids(NewQuery("x").Window(1, 1).apply(docs)))
	assert.Equal(t, []string{"b", "c"}, ids(NewQuery("x").Window(1, 0).apply(docs)))
	assert.Empty(t, NewQuery("x").Window(3, 1).apply(docs))
}

func TestWhereNormalizesValues(t *testing.T) {
	q := NewQuery("clients").Where("retainer", OpGreaterOrEqual, 100)
	assert.Equal(t, float64(100), q.Filters[0].Value)
}

func ids(docs []Snapshot) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
