package registry

import (
	"fmt"
	"testing"
	"time"

	"github.com/code-explorer/backend/internal/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(id string) models.FileRecord {
	return models.FileRecord{
		ID:         id,
		Name:       id + ".go",
		Content:    "package " + id,
		Language:   "go",
		UploadedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func ids(records []models.FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRegistry_InitialState(t *testing.T) {
	r := New()

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.SelectedID())
	_, ok := r.Selected()
	assert.False(t, ok)
	assert.Empty(t, r.Snapshot().Files)
}

func TestRegistry_AddSelectsNewRecord(t *testing.T) {
	r := New()
	r.Add(record("a"))
	r.Add(record("b"))

	assert.Equal(t, []string{"a", "b"}, ids(r.List()))
	assert.Equal(t, "b", r.SelectedID())

	sel, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)
}

func TestRegistry_Select(t *testing.T) {
	r := New()
	r.Add(record("a"))
	r.Add(record("b"))

	assert.True(t, r.Select("a"))
	assert.Equal(t, "a", r.SelectedID())

	assert.False(t, r.Select("missing"))
	assert.Equal(t, "a", r.SelectedID(), "unknown id must not change selection")

	assert.False(t, r.Select(""))
	assert.Equal(t, "a", r.SelectedID())
}

func TestRegistry_Remove(t *testing.T) {
	tests := []struct {
		name         string
		policy       RemovalPolicy
		add          []string
		selectID     string
		removeID     string
		wantRemoved  bool
		wantIDs      []string
		wantSelected string
	}{
		{
			name:         "selected record moves selection to first",
			add:          []string{"a", "b", "c"},
			selectID:     "b",
			removeID:     "b",
			wantRemoved:  true,
			wantIDs:      []string{"a", "c"},
			wantSelected: "a",
		},
		{
			name:         "removing selected first record selects new first",
			add:          []string{"a", "b", "c"},
			selectID:     "a",
			removeID:     "a",
			wantRemoved:  true,
			wantIDs:      []string{"b", "c"},
			wantSelected: "b",
		},
		{
			name:         "removing only record clears selection",
			add:          []string{"a"},
			removeID:     "a",
			wantRemoved:  true,
			wantIDs:      []string{},
			wantSelected: "",
		},
		{
			name:         "removing non-selected record keeps selection",
			add:          []string{"a", "b", "c"},
			selectID:     "c",
			removeID:     "a",
			wantRemoved:  true,
			wantIDs:      []string{"b", "c"},
			wantSelected: "c",
		},
		{
			name:         "unknown id is a no-op",
			add:          []string{"a", "b"},
			removeID:     "zzz",
			wantRemoved:  false,
			wantIDs:      []string{"a", "b"},
			wantSelected: "b",
		},
		{
			name:         "clear policy leaves nothing selected",
			policy:       ClearSelection,
			add:          []string{"a", "b"},
			removeID:     "b",
			wantRemoved:  true,
			wantIDs:      []string{"a"},
			wantSelected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(WithRemovalPolicy(tt.policy))
			for _, id := range tt.add {
				r.Add(record(id))
			}
			if tt.selectID != "" {
				require.True(t, r.Select(tt.selectID))
			}

			assert.Equal(t, tt.wantRemoved, r.Remove(tt.removeID))
			assert.Equal(t, tt.wantIDs, ids(r.List()))
			assert.Equal(t, tt.wantSelected, r.SelectedID())
		})
	}
}

func TestRegistry_ListIsACopy(t *testing.T) {
	r := New()
	r.Add(record("a"))

	list := r.List()
	list[0].Content = "mutated"

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "package a", got.Content)
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New()
	r.Add(record("a"))
	r.Add(record("b"))
	r.Select("a")

	snap := r.Snapshot()
	require.Len(t, snap.Files, 2)
	assert.Equal(t, "a", snap.SelectedID)
	assert.True(t, snap.Files[0].Selected)
	assert.False(t, snap.Files[1].Selected)
	assert.Equal(t, int64(len("package a")), snap.Files[0].Size)
}

func TestParseRemovalPolicy(t *testing.T) {
	assert.Equal(t, ClearSelection, ParseRemovalPolicy("none"))
	assert.Equal(t, SelectFirst, ParseRemovalPolicy("first"))
	assert.Equal(t, SelectFirst, ParseRemovalPolicy(""))
}

type op struct {
	kind int // 0 add, 1 select, 2 remove
	n    int
}

func genOp() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 2), gen.IntRange(0, 9)).Map(func(v []interface{}) op {
		return op{kind: v[0].(int), n: v[1].(int)}
	})
}

func TestRegistry_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("selection always points at a held record", prop.ForAll(
		func(ops []op) bool {
			r := New()
			next := 0
			for _, o := range ops {
				switch o.kind {
				case 0:
					id := fmt.Sprintf("r%d", next)
					next++
					r.Add(record(id))
					if r.SelectedID() != id {
						return false
					}
				case 1:
					before := r.SelectedID()
					id := fmt.Sprintf("r%d", o.n)
					_, exists := r.Get(id)
					r.Select(id)
					if exists && r.SelectedID() != id {
						return false
					}
					if !exists && r.SelectedID() != before {
						return false
					}
				case 2:
					before := r.SelectedID()
					id := fmt.Sprintf("r%d", o.n)
					r.Remove(id)
					if before != id && r.SelectedID() != before {
						return false
					}
					if before == id {
						list := r.List()
						if len(list) == 0 && r.SelectedID() != "" {
							return false
						}
						if len(list) > 0 && r.SelectedID() != list[0].ID {
							return false
						}
					}
				}

				sel := r.SelectedID()
				if sel != "" {
					if _, ok := r.Get(sel); !ok {
						return false
					}
				}
				if r.Len() == 0 && sel != "" {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}
