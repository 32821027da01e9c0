// Package matcher evaluates alert rules against candidate listings. All
// functions are pure: the result depends only on the rule and the listings,
// never on a clock or call order.
package matcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dealradar/backend/internal/model"
)

// DegeneratePolicy decides what a rule with no positive filters does. Such a
// rule would match every listing, which is almost never what the user meant.
type DegeneratePolicy string

const (
	// DegenerateSkip skips the rule and logs it.
	DegenerateSkip DegeneratePolicy = "skip"
	// DegenerateMatchAll lets the rule match everything.
	DegenerateMatchAll DegeneratePolicy = "match_all"
)

// ParsePolicy maps a config string to a policy, defaulting to skip.
func ParsePolicy(s string) DegeneratePolicy {
	if DegeneratePolicy(s) == DegenerateMatchAll {
		return DegenerateMatchAll
	}
	return DegenerateSkip
}

// Validation errors for structurally broken rules. The API layer rejects
// these at creation time; the engine still checks so a bad row skips one rule
// instead of crashing the cycle.
var (
	ErrPriceBoundsInverted = errors.New("min_price greater than max_price")
	ErrRadiusWithoutOrigin = errors.New("radius set without coordinates")
	ErrInvalidRadius       = errors.New("radius must be positive")
	ErrInvalidDealScore    = errors.New("min_deal_score must be between 0 and 1")
)

// Validate checks structural soundness of a rule.
func Validate(rule *model.AlertRule) error {
	if rule.MinPrice != nil && rule.MaxPrice != nil && rule.MinPrice.GreaterThan(*rule.MaxPrice) {
		return ErrPriceBoundsInverted
	}
	if rule.RadiusKM != nil {
		if *rule.RadiusKM <= 0 {
			return ErrInvalidRadius
		}
		if rule.Latitude == nil || rule.Longitude == nil {
			return ErrRadiusWithoutOrigin
		}
	}
	if rule.MinDealScore != nil && (*rule.MinDealScore < 0 || *rule.MinDealScore > 1) {
		return ErrInvalidDealScore
	}
	for _, name := range rule.Channels {
		if !model.Channel(name).Valid() {
			return fmt.Errorf("unknown channel %q", name)
		}
	}
	return nil
}

// IsDegenerate reports whether the rule has no positive filter at all.
// Exclude keywords alone do not count: they only narrow a match set that
// would otherwise be everything.
func IsDegenerate(rule *model.AlertRule) bool {
	return len(rule.Keywords) == 0 &&
		len(rule.Categories) == 0 &&
		rule.Condition == nil &&
		rule.MinPrice == nil &&
		rule.MaxPrice == nil &&
		rule.RadiusKM == nil &&
		rule.MinDealScore == nil
}

// Evaluate returns the subset of candidates that satisfy every criterion of
// the rule, preserving input order.
func Evaluate(rule *model.AlertRule, candidates []model.Listing) []model.Listing {
	var matched []model.Listing
	for i := range candidates {
		if Matches(rule, &candidates[i]) {
			matched = append(matched, candidates[i])
		}
	}
	return matched
}

// Matches checks a single listing against every criterion. All checks are
// conjunctive; unset criteria pass.
func Matches(rule *model.AlertRule, listing *model.Listing) bool {
	text := strings.ToLower(listing.Title + " " + listing.Description)

	if len(rule.Keywords) > 0 && !containsAny(text, rule.Keywords) {
		return false
	}
	if containsAny(text, rule.ExcludeKeywords) {
		return false
	}
	if len(rule.Categories) > 0 && !containsString(rule.Categories, listing.Category) {
		return false
	}
	if rule.Condition != nil && !strings.EqualFold(*rule.Condition, listing.Condition) {
		return false
	}
	if rule.MinPrice != nil && listing.Price.LessThan(*rule.MinPrice) {
		return false
	}
	if rule.MaxPrice != nil && listing.Price.GreaterThan(*rule.MaxPrice) {
		return false
	}
	if rule.RadiusKM != nil {
		// A listing without coordinates cannot be shown to be in range.
		if listing.Latitude == nil || listing.Longitude == nil {
			return false
		}
		dist := HaversineKM(*rule.Latitude, *rule.Longitude, *listing.Latitude, *listing.Longitude)
		if dist > *rule.RadiusKM {
			return false
		}
	}
	if rule.MinDealScore != nil && listing.DealScore < *rule.MinDealScore {
		return false
	}
	return true
}

// containsAny reports whether any keyword occurs in text, case-insensitively.
// Substring containment is intentional: excluding "mac" must also exclude
// "Macbook".
func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
