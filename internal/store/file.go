package store

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "time"

    "towngraph/internal/model"
    "towngraph/internal/taxonomy"
)

// File stores one JSON document per town under a root directory. It is the
// backend used when no DATABASE_URL is configured, and in tests.
type File struct {
    dir string
    mu  sync.Mutex
    now func() time.Time
}

// townDoc is the on-disk document for a single town.
type townDoc struct {
    Edges        []model.Edge                    `json:"edges"`
    SeasonDeltas []model.SeasonWeightDelta       `json:"seasonDeltas"`
    Routes       map[model.Window]model.RouteSet `json:"routes"`
    Suggestions  *model.SuggestionSet            `json:"suggestions,omitempty"`
}

func NewFile(dir string) (*File, error) {
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return nil, err
    }
    return &File{dir: dir, now: time.Now}, nil
}

func (f *File) path(townID string) string {
    return filepath.Join(f.dir, townID+".json")
}

func validTownID(townID string) bool {
    return townID != "" && !strings.ContainsAny(townID, `/\.`)
}

func (f *File) load(townID string) (*townDoc, error) {
    b, err := os.ReadFile(f.path(townID))
    if os.IsNotExist(err) {
        return &townDoc{Routes: map[model.Window]model.RouteSet{}}, nil
    }
    if err != nil {
        return nil, err
    }
    var doc townDoc
    if err := json.Unmarshal(b, &doc); err != nil {
        return nil, fmt.Errorf("decode %s: %w", townID, err)
    }
    if doc.Routes == nil {
        doc.Routes = map[model.Window]model.RouteSet{}
    }
    return &doc, nil
}

// save writes via a temp file and rename so concurrent readers never see a
// half-written document.
func (f *File) save(townID string, doc *townDoc) error {
    b, err := json.MarshalIndent(doc, "", "  ")
    if err != nil {
        return err
    }
    tmp, err := os.CreateTemp(f.dir, townID+".*.tmp")
    if err != nil {
        return err
    }
    if _, err := tmp.Write(b); err != nil {
        tmp.Close()
        os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmp.Name())
        return err
    }
    return os.Rename(tmp.Name(), f.path(townID))
}

func (f *File) UpsertEdge(ctx context.Context, townID string, from, to model.Category, weight float64, mode model.UpsertMode) (*model.Edge, error) {
    if !validTownID(townID) || !taxonomy.ValidCategory(from) || !taxonomy.ValidCategory(to) {
        return nil, ErrInvalidInput
    }
    if from == to {
        // Defined no-op, not an error.
        return nil, nil
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return nil, err
    }
    now := f.now().UTC()
    for i := range doc.Edges {
        e := &doc.Edges[i]
        if e.From == from && e.To == to {
            e.Weight = applyUpsert(e.Weight, weight, mode)
            e.UpdatedAt = now
            if err := f.save(townID, doc); err != nil {
                return nil, err
            }
            out := *e
            return &out, nil
        }
    }
    e := model.Edge{TownID: townID, From: from, To: to, Weight: applyUpsert(-1, weight, mode), UpdatedAt: now}
    doc.Edges = append(doc.Edges, e)
    if err := f.save(townID, doc); err != nil {
        return nil, err
    }
    return &e, nil
}

func (f *File) ListEdges(ctx context.Context, townID string) ([]model.Edge, error) {
    if !validTownID(townID) {
        return nil, ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return nil, err
    }
    out := append([]model.Edge(nil), doc.Edges...)
    sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
    return out, nil
}

func (f *File) TopEdgesFrom(ctx context.Context, townID string, from model.Category, limit int) ([]model.EdgeWeight, error) {
    if limit <= 0 || limit > 10 {
        limit = 10
    }
    edges, err := f.ListEdges(ctx, townID)
    if err != nil {
        return nil, err
    }
    out := []model.EdgeWeight{}
    for _, e := range edges {
        if e.From != from {
            continue
        }
        out = append(out, model.EdgeWeight{To: e.To, Weight: e.Weight})
        if len(out) >= limit {
            break
        }
    }
    return out, nil
}

func (f *File) AddSeasonDelta(ctx context.Context, d model.SeasonWeightDelta) error {
    if !validTownID(d.TownID) || d.Season == "" || !taxonomy.ValidWindow(d.Window) {
        return ErrInvalidInput
    }
    if !taxonomy.ValidCategory(d.From) || !taxonomy.ValidCategory(d.To) || d.From == d.To {
        return ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(d.TownID)
    if err != nil {
        return err
    }
    if d.CreatedAt.IsZero() {
        d.CreatedAt = f.now().UTC()
    }
    doc.SeasonDeltas = append(doc.SeasonDeltas, d)
    return f.save(d.TownID, doc)
}

func (f *File) ListSeasonDeltas(ctx context.Context, townID string) ([]model.SeasonWeightDelta, error) {
    if !validTownID(townID) {
        return nil, ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return nil, err
    }
    return append([]model.SeasonWeightDelta(nil), doc.SeasonDeltas...), nil
}

func (f *File) ReplaceRouteSet(ctx context.Context, set model.RouteSet) error {
    if !validTownID(set.TownID) || !taxonomy.ValidWindow(set.Window) {
        return ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(set.TownID)
    if err != nil {
        return err
    }
    doc.Routes[set.Window] = set
    return f.save(set.TownID, doc)
}

func (f *File) GetRouteSet(ctx context.Context, townID string, window model.Window) (model.RouteSet, error) {
    if !validTownID(townID) || !taxonomy.ValidWindow(window) {
        return model.RouteSet{}, ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return model.RouteSet{}, err
    }
    set, ok := doc.Routes[window]
    if !ok {
        return model.RouteSet{}, ErrNotFound
    }
    return set, nil
}

func (f *File) SaveSuggestionSet(ctx context.Context, set model.SuggestionSet) error {
    if !validTownID(set.TownID) {
        return ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(set.TownID)
    if err != nil {
        return err
    }
    doc.Suggestions = &set
    return f.save(set.TownID, doc)
}

func (f *File) GetSuggestionSet(ctx context.Context, townID string) (model.SuggestionSet, error) {
    if !validTownID(townID) {
        return model.SuggestionSet{}, ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return model.SuggestionSet{}, err
    }
    if doc.Suggestions == nil {
        return model.SuggestionSet{}, ErrNotFound
    }
    return *doc.Suggestions, nil
}

func (f *File) LastComputed(ctx context.Context, townID string, artifact model.Artifact) (*time.Time, error) {
    if !validTownID(townID) {
        return nil, ErrInvalidInput
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    doc, err := f.load(townID)
    if err != nil {
        return nil, err
    }
    switch artifact {
    case model.ArtifactSuggestions:
        if doc.Suggestions == nil {
            return nil, nil
        }
        t := doc.Suggestions.ComputedAt
        return &t, nil
    case model.ArtifactRoutes:
        var latest time.Time
        for _, set := range doc.Routes {
            if set.ComputedAt.After(latest) {
                latest = set.ComputedAt
            }
        }
        if latest.IsZero() {
            return nil, nil
        }
        return &latest, nil
    default:
        return nil, ErrInvalidInput
    }
}

// ActiveTowns scans the data directory for town files modified after since,
// most recently touched first. This is the local-mode candidate discovery
// path; the Postgres backend answers the same question with an index.
func (f *File) ActiveTowns(ctx context.Context, since time.Time, limit int) ([]model.Target, error) {
    entries, err := os.ReadDir(f.dir)
    if err != nil {
        return nil, err
    }
    type hit struct {
        town string
        mod  time.Time
    }
    hits := []hit{}
    for _, ent := range entries {
        name := ent.Name()
        if ent.IsDir() || !strings.HasSuffix(name, ".json") {
            continue
        }
        info, err := ent.Info()
        if err != nil {
            continue
        }
        if info.ModTime().After(since) {
            hits = append(hits, hit{town: strings.TrimSuffix(name, ".json"), mod: info.ModTime()})
        }
    }
    sort.SliceStable(hits, func(i, j int) bool { return hits[i].mod.After(hits[j].mod) })
    out := []model.Target{}
    for _, h := range hits {
        out = append(out, model.Target{TownID: h.town})
        if limit > 0 && len(out) >= limit {
            break
        }
    }
    return out, nil
}
