package taxonomy

import (
    "time"

    "towngraph/internal/model"
)

// Categories lists every known category in a fixed order.
func Categories() []model.Category {
    return []model.Category{
        model.CategoryCafe,
        model.CategoryFitness,
        model.CategorySalon,
        model.CategoryRetail,
        model.CategoryService,
        model.CategoryFood,
        model.CategoryOther,
    }
}

// Windows lists every day-part window in a fixed order.
func Windows() []model.Window {
    return []model.Window{
        model.WindowMorning,
        model.WindowLunch,
        model.WindowAfterWork,
        model.WindowEvening,
        model.WindowWeekend,
    }
}

// ValidCategory reports whether c is a known category tag.
func ValidCategory(c model.Category) bool {
    for _, k := range Categories() {
        if k == c {
            return true
        }
    }
    return false
}

// ValidWindow reports whether w is a known day-part window.
func ValidWindow(w model.Window) bool {
    for _, k := range Windows() {
        if k == w {
            return true
        }
    }
    return false
}

// Weekday hour ranges per window, inclusive on both ends. The weekend
// window matches any hour on Saturday/Sunday instead.
var windowHours = map[model.Window][2]int{
    model.WindowMorning:   {6, 10},
    model.WindowLunch:     {11, 14},
    model.WindowAfterWork: {15, 18},
    model.WindowEvening:   {19, 23},
}

// WindowContains reports whether a recurring (day, hour) slot falls inside
// the window's time range.
func WindowContains(w model.Window, day time.Weekday, hour int) bool {
    weekend := day == time.Saturday || day == time.Sunday
    if w == model.WindowWeekend {
        return weekend
    }
    if weekend {
        return false
    }
    r, ok := windowHours[w]
    if !ok {
        return false
    }
    return hour >= r[0] && hour <= r[1]
}
