package model

import "time"

// Core domain types for the town intelligence graph.

// Category is a fixed business-type tag used as graph vertex identity.
// The set is closed; graphs are scoped per town, so the same category in
// two towns is two distinct nodes.
type Category string

const (
    CategoryCafe    Category = "cafe"
    CategoryFitness Category = "fitness"
    CategorySalon   Category = "salon"
    CategoryRetail  Category = "retail"
    CategoryService Category = "service"
    CategoryFood    Category = "food"
    CategoryOther   Category = "other"
)

// Window is one of the five day-part buckets demand and routes are scoped to.
type Window string

const (
    WindowMorning   Window = "morning"
    WindowLunch     Window = "lunch"
    WindowAfterWork Window = "after-work"
    WindowEvening   Window = "evening"
    WindowWeekend   Window = "weekend"
)

// UpsertMode controls how UpsertEdge treats an existing edge.
// Increment compounds repeatable organic signals; Ensure is idempotent
// declarative linkage and never amplifies.
type UpsertMode string

const (
    UpsertIncrement UpsertMode = "increment"
    UpsertEnsure    UpsertMode = "ensure"
)

// Edge is a weighted directed relationship between two categories within
// one town's graph. At most one edge exists per ordered pair per town.
type Edge struct {
    TownID    string    `json:"townId"`
    From      Category  `json:"from"`
    To        Category  `json:"to"`
    Weight    float64   `json:"weight"`
    UpdatedAt time.Time `json:"updatedAt"`
}

// EdgeWeight is a destination/weight pair returned by top-k queries.
type EdgeWeight struct {
    To     Category `json:"to"`
    Weight float64  `json:"weight"`
}

// SeasonWeightDelta is an operator-authored additive adjustment layered on
// a base edge weight while its season tag is active and window matches.
// Multiple rows for the same key accumulate by summation on application.
type SeasonWeightDelta struct {
    TownID    string    `json:"townId"`
    Season    string    `json:"season"`
    Window    Window    `json:"window"`
    From      Category  `json:"from"`
    To        Category  `json:"to"`
    Delta     float64   `json:"delta"`
    CreatedAt time.Time `json:"createdAt"`
}

// RouteCandidate is a ranked three-stop walk through the graph.
type RouteCandidate struct {
    Stops  []Category `json:"stops"` // always exactly 3
    Why    string     `json:"why"`
    Weight float64    `json:"weight"`
}

// RouteSet is the ranked candidate list for one (town, window), replaced
// wholesale on every recomputation.
type RouteSet struct {
    TownID     string           `json:"townId"`
    Window     Window           `json:"window"`
    Routes     []RouteCandidate `json:"routes"`
    ComputedAt time.Time        `json:"computedAt"`
}

// Suggestion is a single "what to visit next" category pairing.
type Suggestion struct {
    From   Category `json:"from"`
    To     Category `json:"to"`
    Weight float64  `json:"weight"`
    Why    string   `json:"why"`
}

// SuggestionSet is the per-town pairing artifact, regenerated wholesale.
type SuggestionSet struct {
    ID          string       `json:"id"`
    TownID      string       `json:"townId"`
    Suggestions []Suggestion `json:"suggestions"`
    ComputedAt  time.Time    `json:"computedAt"`
}

// Artifact names a recomputable per-town artifact for staleness checks.
type Artifact string

const (
    ArtifactSuggestions Artifact = "suggestions"
    ArtifactRoutes      Artifact = "routes"
)

// TrendDirection is the demand model's per-category trend signal.
type TrendDirection string

const (
    TrendUp     TrendDirection = "up"
    TrendSteady TrendDirection = "steady"
    TrendDown   TrendDirection = "down"
)

// DemandSlot is a recurring (day-of-week, hour) slot observed as busy or slow.
type DemandSlot struct {
    DayOfWeek time.Weekday `json:"dayOfWeek"`
    Hour      int          `json:"hour"`
}

// DemandModel is the externally produced town pulse: busy/slow slots plus
// per-category trend. Read-only input to ranking; never mutated here.
type DemandModel struct {
    TownID         string                      `json:"townId"`
    BusySlots      []DemandSlot                `json:"busySlots"`
    SlowSlots      []DemandSlot                `json:"slowSlots"`
    CategoryTrends map[Category]TrendDirection `json:"categoryTrends"`
}

// Target identifies a town due for recomputation. OwnerID is set only in
// storage topologies where town data is partitioned per owner.
type Target struct {
    TownID  string `json:"townId"`
    OwnerID string `json:"ownerId,omitempty"`
}

// Key returns the scheduler dedup key for the target.
func (t Target) Key() string {
    if t.OwnerID != "" {
        return t.OwnerID + "/" + t.TownID
    }
    return t.TownID
}
