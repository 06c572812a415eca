package taxonomy

import (
    "regexp"

    "towngraph/internal/model"
)

// Keyword rules evaluated in a fixed priority order; the first match wins.
// Overlapping keywords ("drink" vs "snack") are resolved by list position,
// so the order here is load-bearing and pinned by tests.
var inferRules = []struct {
    cat model.Category
    re  *regexp.Regexp
}{
    {model.CategoryFitness, regexp.MustCompile(`(?i)\b(gym|fitness|workout|yoga|pilates|crossfit|trainer|stretch|cardio)\b`)},
    {model.CategorySalon, regexp.MustCompile(`(?i)\b(salon|spa|hair|nails?|barber|beauty|lash(es)?|facial|manicure)\b`)},
    {model.CategoryCafe, regexp.MustCompile(`(?i)\b(coffee|caf[eé]|espresso|latte|matcha|tea|drink|brew|roastery)\b`)},
    {model.CategoryFood, regexp.MustCompile(`(?i)\b(restaurant|lunch|dinner|brunch|meal|snack|pizza|tacos?|bakery|bites?)\b`)},
    {model.CategoryRetail, regexp.MustCompile(`(?i)\b(shop(ping)?|boutique|store|retail|gifts?|browse|market|bookstore)\b`)},
    {model.CategoryService, regexp.MustCompile(`(?i)\b(repair|cleaning|tailor|plumber|detailing|studio|class|lesson|service)\b`)},
}

// Infer maps free text to the category it implies. The second return is
// false when no rule matches; callers must not reinforce the graph on a
// missed inference.
func Infer(text string) (model.Category, bool) {
    if text == "" {
        return "", false
    }
    for _, r := range inferRules {
        if r.re.MatchString(text) {
            return r.cat, true
        }
    }
    return "", false
}
