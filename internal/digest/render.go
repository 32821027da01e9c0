package digest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/internal/notify"
)

// Render produces the digest payload from pending entries. Rules are listed
// alphabetically; within a rule, entries are ordered best-deal first, ties
// broken by recency then listing ID so the output is stable across runs.
func Render(cadence model.Cadence, entries []model.DigestEntry) notify.Content {
	period := "daily"
	if cadence == model.CadenceWeekly {
		period = "weekly"
	}

	subject := fmt.Sprintf("Your %s deal digest: %d new %s",
		period, len(entries), plural(len(entries), "deal", "deals"))

	groups := map[string][]model.DigestEntry{}
	for _, e := range entries {
		groups[e.RuleName] = append(groups[e.RuleName], e)
	}
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s\n", name)

		group := groups[name]
		sort.Slice(group, func(i, j int) bool {
			if group[i].DealScore != group[j].DealScore {
				return group[i].DealScore > group[j].DealScore
			}
			if !group[i].ListingCreatedAt.Equal(group[j].ListingCreatedAt) {
				return group[i].ListingCreatedAt.After(group[j].ListingCreatedAt)
			}
			return group[i].ListingID.String() < group[j].ListingID.String()
		})

		for _, e := range group {
			fmt.Fprintf(&b, "  %s for %s (deal score %.2f)\n    %s\n",
				e.ListingTitle, e.ListingPrice.StringFixed(2), e.DealScore, e.ListingURL)
		}
	}

	return notify.Content{Subject: subject, Body: b.String()}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
