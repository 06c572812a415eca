package rank

import (
    "fmt"

    "towngraph/internal/model"
)

// whyFor picks the narrative template for a window. Weekend windows always
// read as a browsing loop regardless of signal strength; otherwise the
// phrasing follows whichever of busy/slow dominates, with a neutral
// fallback when neither does.
func whyFor(window model.Window, busy, slow int) string {
    if window == model.WindowWeekend {
        return "a relaxed weekend browsing loop"
    }
    switch {
    case busy > slow:
        return fmt.Sprintf("rides the busy %s stretch", window)
    case slow > busy:
        return fmt.Sprintf("fills a slower %s stretch", window)
    default:
        return fmt.Sprintf("a natural %s sequence", window)
    }
}
