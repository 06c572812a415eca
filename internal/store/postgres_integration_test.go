//go:build postgres_integration

package store

import (
    "os"
    "testing"

    "towngraph/internal/model"
)

func TestPostgresConnectivityAndSchema(t *testing.T) {
    dsn := os.Getenv("DATABASE_URL")
    if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
    p, err := NewPostgres(dsn)
    if err != nil { t.Fatalf("NewPostgres: %v", err) }
    if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
    if err := p.EnsureSchema(t.Context()); err != nil { t.Fatalf("EnsureSchema: %v", err) }

    e, err := p.UpsertEdge(t.Context(), "t_int", model.CategoryCafe, model.CategoryRetail, 3, model.UpsertIncrement)
    if err != nil { t.Fatalf("UpsertEdge: %v", err) }
    if e == nil || e.Weight < 3 { t.Fatalf("unexpected edge: %+v", e) }
    if _, err := p.ListEdges(t.Context(), "t_int"); err != nil { t.Fatalf("ListEdges: %v", err) }
    if _, err := p.LastComputed(t.Context(), "t_int", model.ArtifactRoutes); err != nil { t.Fatalf("LastComputed: %v", err) }
}
