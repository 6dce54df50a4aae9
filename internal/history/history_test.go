package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrepeneur4lyf/repairforge/internal/guide"
	"github.com/entrepeneur4lyf/repairforge/internal/storage"
)

type failingKV struct{ storage.KV }

func (failingKV) Get(context.Context, string) (string, error) { return "", errors.New("disk unavailable") }
func (failingKV) Set(context.Context, string, string) error   { return errors.New("disk unavailable") }
func (failingKV) Delete(context.Context, string) error        { return errors.New("disk unavailable") }

func testGuide(diagnosis string) *guide.RepairGuide {
	return &guide.RepairGuide{
		Diagnosis:        diagnosis,
		EstimatedCost:    "$100",
		MachineDowntime:  "2 hours",
		ManualLaborTime:  "1 hour",
		PartAvailability: "In stock",
		RequiredTools:    []string{"Wrench"},
		SafetyWarnings:   []string{"Wear gloves"},
		RepairSteps:      []guide.RepairStep{{Description: "Tighten fitting"}},
	}
}

func TestAddAndList(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())

	assert.Empty(t, s.List(ctx))

	first, _ := s.Add(ctx, "hydraulic leak on excavator boom", testGuide("Leaking fitting"), "")
	second, list := s.Add(ctx, "engine overheating", testGuide("Clogged radiator"), "media-1")

	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "media-1", list[0].MediaRef)
	assert.NotEqual(t, first.ID, second.ID)

	stored := s.List(ctx)
	assert.Equal(t, list, stored)
}

func TestAddReturnsStoredTimestamp(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())
	ist := time.FixedZone("IST", 5*3600+1800)
	s.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 123, ist) }

	entry, list := s.Add(ctx, "loader bucket cracked", testGuide("Weld fatigue"), "")

	assert.Equal(t, time.UTC, entry.CreatedAt.Location())
	assert.True(t, entry.CreatedAt.Equal(time.Date(2026, 10, 16, 4, 0, 0, 123, time.UTC)))
	assert.Equal(t, list, s.List(ctx))
	assert.Equal(t, entry, s.List(ctx)[0])
}

func TestAddSnapshotsGuide(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())

	g := testGuide("Original")
	s.Add(ctx, "desc", g, "")
	g.Diagnosis = "Edited later"

	assert.Equal(t, "Original", s.List(ctx)[0].Guide.Diagnosis)
}

func TestCap(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())

	for i := 0; i <= MaxEntries; i++ {
		s.Add(ctx, fmt.Sprintf("entry-%d", i), testGuide("d"), "")
	}

	list := s.List(ctx)
	require.Len(t, list, MaxEntries)
	assert.Equal(t, fmt.Sprintf("entry-%d", MaxEntries), list[0].Description)
	assert.Equal(t, "entry-1", list[MaxEntries-1].Description)
	for _, e := range list {
		assert.NotEqual(t, "entry-0", e.Description)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())

	var ids []string
	for i := 0; i < 4; i++ {
		e, _ := s.Add(ctx, fmt.Sprintf("entry-%d", i), testGuide("d"), "")
		ids = append(ids, e.ID)
	}

	remaining := s.Remove(ctx, ids[2])
	require.Len(t, remaining, 3)
	assert.Equal(t, []string{"entry-3", "entry-1", "entry-0"}, descriptions(remaining))

	// Unknown ids leave the list alone.
	assert.Len(t, s.Remove(ctx, "nope"), 3)

	_, ok := s.Get(ctx, ids[2])
	assert.False(t, ok)
	got, ok := s.Get(ctx, ids[1])
	assert.True(t, ok)
	assert.Equal(t, "entry-1", got.Description)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())
	s.Add(ctx, "a", testGuide("d"), "")
	s.Add(ctx, "b", testGuide("d"), "")

	s.Clear(ctx)
	assert.Empty(t, s.List(ctx))
}

func TestDegradesToEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupt", func(t *testing.T) {
		kv := storage.NewMemoryKV()
		require.NoError(t, kv.Set(ctx, storage.HistoryKey, "{not json"))
		s := New(kv)
		assert.Empty(t, s.List(ctx))

		_, list := s.Add(ctx, "fresh", testGuide("d"), "")
		assert.Len(t, list, 1)
	})

	t.Run("null", func(t *testing.T) {
		kv := storage.NewMemoryKV()
		require.NoError(t, kv.Set(ctx, storage.HistoryKey, "null"))
		assert.NotNil(t, New(kv).List(ctx))
	})

	t.Run("unavailable", func(t *testing.T) {
		s := New(failingKV{})
		assert.Empty(t, s.List(ctx))
		assert.NotPanics(t, func() {
			s.Add(ctx, "x", testGuide("d"), "")
			s.Remove(ctx, "x")
			s.Clear(ctx)
		})
	})

	t.Run("over quota", func(t *testing.T) {
		kv := storage.NewMemoryKV()
		kv.MaxValueSize = 10
		s := New(kv)
		_, list := s.Add(ctx, "x", testGuide("d"), "")
		assert.Len(t, list, 1)
		assert.Empty(t, s.List(ctx))
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := New(storage.NewMemoryKV())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	s.Add(ctx, "hydraulic leak on excavator boom", testGuide("Worn cylinder seal"), "")
	s.Add(ctx, "engine will not start", testGuide("Dead starter relay"), "")
	s.Add(ctx, "track keeps slipping", testGuide("Loose track tension"), "")

	assert.Len(t, s.Search(ctx, ""), 3)
	assert.Equal(t, []string{"hydraulic leak on excavator boom"}, descriptions(s.Search(ctx, "leak boom")))
	assert.Equal(t, []string{"engine will not start"}, descriptions(s.Search(ctx, "STARTER")))
	assert.Empty(t, s.Search(ctx, "transmission"))
}

func descriptions(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Description
	}
	return out
}
