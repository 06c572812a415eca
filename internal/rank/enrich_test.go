package rank

import (
    "context"
    "errors"
    "testing"

    "towngraph/internal/logger"
    "towngraph/internal/model"
    "towngraph/internal/store"
)

// failingStore simulates backend trouble on the enrichment write path.
type failingStore struct {
    *store.File
    calls int
}

func (f *failingStore) UpsertEdge(ctx context.Context, townID string, from, to model.Category, weight float64, mode model.UpsertMode) (*model.Edge, error) {
    f.calls++
    return nil, errors.New("backend down")
}

func TestTryEnrichAddsEdge(t *testing.T) {
    e, f := newTestEngine(t, nil)
    ctx := context.Background()
    e.TryEnrich(ctx, "t1", model.CategoryCafe, "pair it with a workout at the gym next door")
    edges, err := f.ListEdges(ctx, "t1")
    if err != nil {
        t.Fatalf("ListEdges: %v", err)
    }
    if len(edges) != 1 || edges[0].From != model.CategoryCafe || edges[0].To != model.CategoryFitness {
        t.Fatalf("expected cafe->fitness enrichment, got %+v", edges)
    }
    if edges[0].Weight != enrichWeight {
        t.Fatalf("weight = %v, want %v", edges[0].Weight, enrichWeight)
    }
}

func TestTryEnrichSkipsSameCategoryAndNoMatch(t *testing.T) {
    e, f := newTestEngine(t, nil)
    ctx := context.Background()
    e.TryEnrich(ctx, "t1", model.CategoryCafe, "come in for a fresh espresso") // infers cafe itself
    e.TryEnrich(ctx, "t1", model.CategoryCafe, "nothing to see")              // no rule matches
    edges, err := f.ListEdges(ctx, "t1")
    if err != nil {
        t.Fatalf("ListEdges: %v", err)
    }
    if len(edges) != 0 {
        t.Fatalf("expected no edges, got %+v", edges)
    }
}

func TestTryEnrichNeverFailsCaller(t *testing.T) {
    f, err := store.NewFile(t.TempDir())
    if err != nil {
        t.Fatalf("NewFile: %v", err)
    }
    fs := &failingStore{File: f}
    e := NewEngine(fs, nil, logger.Nop())
    // Must return normally despite the store failure; the feature that
    // triggered the enrichment proceeds.
    e.TryEnrich(context.Background(), "t1", model.CategoryCafe, "a quick workout session")
    if fs.calls != 1 {
        t.Fatalf("expected one attempted write, got %d", fs.calls)
    }
}
