package rank

import (
    "context"
    "testing"

    "towngraph/internal/model"
)

func TestRecomputeSuggestions(t *testing.T) {
    e, f := newTestEngine(t, nil)
    ctx := context.Background()
    _, _ = f.UpsertEdge(ctx, "t1", model.CategoryCafe, model.CategoryFitness, 5, model.UpsertIncrement)
    _, _ = f.UpsertEdge(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 2, model.UpsertIncrement)
    _, _ = f.UpsertEdge(ctx, "t1", model.CategoryFitness, model.CategorySalon, 1, model.UpsertIncrement)

    set, err := e.RecomputeSuggestions(ctx, "t1")
    if err != nil {
        t.Fatalf("RecomputeSuggestions: %v", err)
    }
    if set.ID == "" {
        t.Fatalf("suggestion set missing id")
    }
    if len(set.Suggestions) != 2 {
        t.Fatalf("want one suggestion per category with out-edges, got %+v", set.Suggestions)
    }
    // Strongest pairing wins for cafe.
    if set.Suggestions[0].From != model.CategoryCafe || set.Suggestions[0].To != model.CategoryFitness {
        t.Fatalf("cafe suggestion = %+v", set.Suggestions[0])
    }
    if set.Suggestions[1].From != model.CategoryFitness || set.Suggestions[1].To != model.CategorySalon {
        t.Fatalf("fitness suggestion = %+v", set.Suggestions[1])
    }

    // Replaced wholesale on the next run.
    _, _ = f.UpsertEdge(ctx, "t1", model.CategoryCafe, model.CategoryRetail, 10, model.UpsertIncrement)
    again, err := e.RecomputeSuggestions(ctx, "t1")
    if err != nil {
        t.Fatalf("second run: %v", err)
    }
    if again.ID == set.ID {
        t.Fatalf("expected a fresh set id")
    }
    if again.Suggestions[0].To != model.CategoryRetail {
        t.Fatalf("cafe suggestion not refreshed: %+v", again.Suggestions[0])
    }
    stored, err := f.GetSuggestionSet(ctx, "t1")
    if err != nil {
        t.Fatalf("GetSuggestionSet: %v", err)
    }
    if stored.ID != again.ID {
        t.Fatalf("stored set not replaced")
    }
}
