package pulse

import (
    "context"
    "encoding/json"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "towngraph/internal/model"
)

// FileProvider reads demand models dropped as one JSON file per town by
// the external pulse pipeline. Doubles as the active-signal feed: a
// recently written file is recent demand activity.
type FileProvider struct {
    Dir string
    // Lookback bounds how far back a file write still counts as activity.
    Lookback time.Duration
}

func NewFileProvider(dir string) *FileProvider {
    return &FileProvider{Dir: dir, Lookback: 48 * time.Hour}
}

func (p *FileProvider) GetDemandModel(ctx context.Context, townID string) (*model.DemandModel, error) {
    b, err := os.ReadFile(filepath.Join(p.Dir, townID+".json"))
    if os.IsNotExist(err) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    var dm model.DemandModel
    if err := json.Unmarshal(b, &dm); err != nil {
        return nil, err
    }
    if dm.TownID == "" {
        dm.TownID = townID
    }
    return &dm, nil
}

func (p *FileProvider) ListActiveTargets(ctx context.Context, limit int) ([]model.Target, error) {
    entries, err := os.ReadDir(p.Dir)
    if os.IsNotExist(err) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    cutoff := time.Now().Add(-p.Lookback)
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
        if info.ModTime().After(cutoff) {
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
