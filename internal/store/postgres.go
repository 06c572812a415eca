package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "towngraph/internal/model"
    "towngraph/internal/taxonomy"
)

// Postgres is the hosted backend, used when DATABASE_URL is set.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

var schema = []string{
    `CREATE TABLE IF NOT EXISTS town_edges (
        town_id TEXT NOT NULL,
        from_category TEXT NOT NULL,
        to_category TEXT NOT NULL,
        weight DOUBLE PRECISION NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (town_id, from_category, to_category)
    )`,
    `CREATE INDEX IF NOT EXISTS town_edges_updated_idx ON town_edges (updated_at DESC)`,
    `CREATE TABLE IF NOT EXISTS season_weight_deltas (
        id UUID PRIMARY KEY,
        town_id TEXT NOT NULL,
        season TEXT NOT NULL,
        win TEXT NOT NULL,
        from_category TEXT NOT NULL,
        to_category TEXT NOT NULL,
        delta DOUBLE PRECISION NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
    `CREATE INDEX IF NOT EXISTS season_weight_deltas_town_idx ON season_weight_deltas (town_id)`,
    `CREATE TABLE IF NOT EXISTS route_sets (
        town_id TEXT NOT NULL,
        win TEXT NOT NULL,
        routes JSONB NOT NULL,
        computed_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (town_id, win)
    )`,
    `CREATE TABLE IF NOT EXISTS suggestion_sets (
        town_id TEXT PRIMARY KEY,
        id UUID NOT NULL,
        suggestions JSONB NOT NULL,
        computed_at TIMESTAMPTZ NOT NULL
    )`,
}

// EnsureSchema creates the tables if missing (dev helper; production runs
// the same statements via migrations).
func (p *Postgres) EnsureSchema(ctx context.Context) error {
    for _, stmt := range schema {
        if _, err := p.db.ExecContext(ctx, stmt); err != nil { return err }
    }
    return nil
}

func (p *Postgres) UpsertEdge(ctx context.Context, townID string, from, to model.Category, weight float64, mode model.UpsertMode) (*model.Edge, error) {
    if townID == "" || !taxonomy.ValidCategory(from) || !taxonomy.ValidCategory(to) { return nil, ErrInvalidInput }
    if from == to { return nil, nil }
    weight = clampWeight(weight, MinWeight, MaxCallerWeight)
    q := `INSERT INTO town_edges (town_id, from_category, to_category, weight) VALUES ($1,$2,$3,$4)
        ON CONFLICT (town_id, from_category, to_category)
        DO UPDATE SET weight = LEAST(town_edges.weight + EXCLUDED.weight, $5), updated_at = now()
        RETURNING weight, updated_at`
    if mode == model.UpsertEnsure {
        q = `INSERT INTO town_edges (town_id, from_category, to_category, weight) VALUES ($1,$2,$3,$4)
            ON CONFLICT (town_id, from_category, to_category)
            DO UPDATE SET updated_at = now()
            RETURNING weight, updated_at`
    }
    e := model.Edge{TownID: townID, From: from, To: to}
    var err error
    if mode == model.UpsertEnsure {
        err = p.db.QueryRowContext(ctx, q, townID, from, to, weight).Scan(&e.Weight, &e.UpdatedAt)
    } else {
        err = p.db.QueryRowContext(ctx, q, townID, from, to, weight, MaxStorageWeight).Scan(&e.Weight, &e.UpdatedAt)
    }
    if err != nil { return nil, err }
    return &e, nil
}

func (p *Postgres) ListEdges(ctx context.Context, townID string) ([]model.Edge, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT from_category, to_category, weight, updated_at FROM town_edges WHERE town_id=$1 ORDER BY weight DESC, from_category, to_category`, townID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Edge{}
    for rows.Next() {
        e := model.Edge{TownID: townID}
        if err := rows.Scan(&e.From, &e.To, &e.Weight, &e.UpdatedAt); err != nil { return nil, err }
        out = append(out, e)
    }
    return out, rows.Err()
}

func (p *Postgres) TopEdgesFrom(ctx context.Context, townID string, from model.Category, limit int) ([]model.EdgeWeight, error) {
    if limit <= 0 || limit > 10 { limit = 10 }
    rows, err := p.db.QueryContext(ctx, `SELECT to_category, weight FROM town_edges WHERE town_id=$1 AND from_category=$2 ORDER BY weight DESC, to_category LIMIT $3`, townID, from, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.EdgeWeight{}
    for rows.Next() {
        var ew model.EdgeWeight
        if err := rows.Scan(&ew.To, &ew.Weight); err != nil { return nil, err }
        out = append(out, ew)
    }
    return out, rows.Err()
}

func (p *Postgres) AddSeasonDelta(ctx context.Context, d model.SeasonWeightDelta) error {
    if d.TownID == "" || d.Season == "" || !taxonomy.ValidWindow(d.Window) { return ErrInvalidInput }
    if !taxonomy.ValidCategory(d.From) || !taxonomy.ValidCategory(d.To) || d.From == d.To { return ErrInvalidInput }
    _, err := p.db.ExecContext(ctx, `INSERT INTO season_weight_deltas (id, town_id, season, win, from_category, to_category, delta) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
        uuid.New(), d.TownID, d.Season, d.Window, d.From, d.To, d.Delta)
    return err
}

func (p *Postgres) ListSeasonDeltas(ctx context.Context, townID string) ([]model.SeasonWeightDelta, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT season, win, from_category, to_category, delta, created_at FROM season_weight_deltas WHERE town_id=$1 ORDER BY created_at`, townID)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.SeasonWeightDelta{}
    for rows.Next() {
        d := model.SeasonWeightDelta{TownID: townID}
        if err := rows.Scan(&d.Season, &d.Window, &d.From, &d.To, &d.Delta, &d.CreatedAt); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, rows.Err()
}

func (p *Postgres) ReplaceRouteSet(ctx context.Context, set model.RouteSet) error {
    if set.TownID == "" || !taxonomy.ValidWindow(set.Window) { return ErrInvalidInput }
    routes, err := json.Marshal(set.Routes)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO route_sets (town_id, win, routes, computed_at) VALUES ($1,$2,$3,$4)
        ON CONFLICT (town_id, win) DO UPDATE SET routes = EXCLUDED.routes, computed_at = EXCLUDED.computed_at`,
        set.TownID, set.Window, routes, set.ComputedAt)
    return err
}

func (p *Postgres) GetRouteSet(ctx context.Context, townID string, window model.Window) (model.RouteSet, error) {
    if !taxonomy.ValidWindow(window) { return model.RouteSet{}, ErrInvalidInput }
    set := model.RouteSet{TownID: townID, Window: window}
    var routes []byte
    err := p.db.QueryRowContext(ctx, `SELECT routes, computed_at FROM route_sets WHERE town_id=$1 AND win=$2`, townID, window).Scan(&routes, &set.ComputedAt)
    if errors.Is(err, sql.ErrNoRows) { return model.RouteSet{}, ErrNotFound }
    if err != nil { return model.RouteSet{}, err }
    if err := json.Unmarshal(routes, &set.Routes); err != nil { return model.RouteSet{}, err }
    return set, nil
}

func (p *Postgres) SaveSuggestionSet(ctx context.Context, set model.SuggestionSet) error {
    if set.TownID == "" { return ErrInvalidInput }
    if set.ID == "" { set.ID = uuid.New().String() }
    items, err := json.Marshal(set.Suggestions)
    if err != nil { return err }
    _, err = p.db.ExecContext(ctx, `INSERT INTO suggestion_sets (town_id, id, suggestions, computed_at) VALUES ($1,$2,$3,$4)
        ON CONFLICT (town_id) DO UPDATE SET id = EXCLUDED.id, suggestions = EXCLUDED.suggestions, computed_at = EXCLUDED.computed_at`,
        set.TownID, set.ID, items, set.ComputedAt)
    return err
}

func (p *Postgres) GetSuggestionSet(ctx context.Context, townID string) (model.SuggestionSet, error) {
    set := model.SuggestionSet{TownID: townID}
    var items []byte
    err := p.db.QueryRowContext(ctx, `SELECT id, suggestions, computed_at FROM suggestion_sets WHERE town_id=$1`, townID).Scan(&set.ID, &items, &set.ComputedAt)
    if errors.Is(err, sql.ErrNoRows) { return model.SuggestionSet{}, ErrNotFound }
    if err != nil { return model.SuggestionSet{}, err }
    if err := json.Unmarshal(items, &set.Suggestions); err != nil { return model.SuggestionSet{}, err }
    return set, nil
}

func (p *Postgres) LastComputed(ctx context.Context, townID string, artifact model.Artifact) (*time.Time, error) {
    var q string
    switch artifact {
    case model.ArtifactSuggestions:
        q = `SELECT MAX(computed_at) FROM suggestion_sets WHERE town_id=$1`
    case model.ArtifactRoutes:
        q = `SELECT MAX(computed_at) FROM route_sets WHERE town_id=$1`
    default:
        return nil, ErrInvalidInput
    }
    var ts sql.NullTime
    if err := p.db.QueryRowContext(ctx, q, townID).Scan(&ts); err != nil { return nil, err }
    if !ts.Valid { return nil, nil }
    return &ts.Time, nil
}

func (p *Postgres) ActiveTowns(ctx context.Context, since time.Time, limit int) ([]model.Target, error) {
    if limit <= 0 { limit = 100 }
    rows, err := p.db.QueryContext(ctx, `SELECT town_id, MAX(updated_at) AS last FROM town_edges WHERE updated_at > $1 GROUP BY town_id ORDER BY last DESC LIMIT $2`, since, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Target{}
    for rows.Next() {
        var town string
        var last time.Time
        if err := rows.Scan(&town, &last); err != nil { return nil, err }
        out = append(out, model.Target{TownID: town})
    }
    return out, rows.Err()
}
