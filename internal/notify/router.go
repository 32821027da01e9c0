package notify

import (
	"time"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/pkg/timewindow"
)

// DecisionKind is what the router decided to do with a match.
type DecisionKind string

const (
	DecisionSendNow DecisionKind = "send_now"
	DecisionDefer   DecisionKind = "defer"
	DecisionDrop    DecisionKind = "drop"
)

// Defer/drop reasons. Deferred matches land in the digest-equivalent
// catch-up queue; dropping is only ever legitimate for the two reasons below
// and must be logged by the caller.
const (
	ReasonDigestFrequency  = "digest_frequency"
	ReasonQuietHours       = "quiet_hours"
	ReasonDailyLimit       = "daily_limit"
	ReasonNoEnabledChannel = "no_enabled_channel"
	ReasonCategoryFiltered = "category_filtered"
)

// Decision is the routing outcome for one match.
type Decision struct {
	Kind     DecisionKind
	Channels []model.Channel // populated for SendNow
	Reason   string          // populated for Defer and Drop
}

// Route classifies a match as immediate, deferred, or dropped. It is a pure
// function of its inputs: the evaluation instant and the user's zone come in
// as arguments, never from a global clock. Suppressed or over-cap matches are
// deferred, never dropped; silently discarding a match is not acceptable.
func Route(prefs *model.NotificationPreference, requested []model.Channel, category string, now time.Time) Decision {
	if !prefs.AllowsCategory(category) {
		return Decision{Kind: DecisionDrop, Reason: ReasonCategoryFiltered}
	}

	if prefs.Frequency != model.FrequencyImmediate {
		return Decision{Kind: DecisionDefer, Reason: ReasonDigestFrequency}
	}

	loc := timewindow.LoadLocation(prefs.Timezone)
	local := now.In(loc)

	if window, ok := prefs.QuietWindow(); ok && window.Contains(timewindow.At(local)) {
		return Decision{Kind: DecisionDefer, Reason: ReasonQuietHours}
	}

	// Pre-check the daily cap with the stored counter. The dispatcher's
	// conditional increment is the real guard; this avoids pointless sends.
	if prefs.MaxPerDay > 0 &&
		prefs.DailyCountDay == timewindow.DayKey(now, loc) &&
		prefs.DailyCount >= prefs.MaxPerDay {
		return Decision{Kind: DecisionDefer, Reason: ReasonDailyLimit}
	}

	channels := intersect(requested, prefs)
	if len(channels) == 0 {
		return Decision{Kind: DecisionDrop, Reason: ReasonNoEnabledChannel}
	}

	return Decision{Kind: DecisionSendNow, Channels: channels}
}

// intersect keeps the requested channels the user has enabled, in the
// requested order.
func intersect(requested []model.Channel, prefs *model.NotificationPreference) []model.Channel {
	var out []model.Channel
	for _, c := range requested {
		if prefs.ChannelEnabled(c) {
			out = append(out, c)
		}
	}
	return out
}
