package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealradar/backend/internal/model"
	"github.com/dealradar/backend/pkg/timewindow"
)

func immediatePrefs() *model.NotificationPreference {
	p := model.DefaultPreference(uuid.New())
	p.Timezone = "UTC"
	return p
}

func TestRouteSendNow(t *testing.T) {
	t.Parallel()

	prefs := immediatePrefs()
	now := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

	d := Route(prefs, []model.Channel{model.ChannelEmail, model.ChannelPush}, "electronics", now)
	require.Equal(t, DecisionSendNow, d.Kind)
	assert.Equal(t, []model.Channel{model.ChannelEmail, model.ChannelPush}, d.Channels)
}

func TestRouteQuietHoursWrapMidnight(t *testing.T) {
	t.Parallel()

	// 22:00 - 06:00 wraps midnight; 23:30 is inside the window.
	start := timewindow.TimeOfDay{Hour: 22}
	end := timewindow.TimeOfDay{Hour: 6}

	tests := []struct {
		name string
		hour int
		min  int
		want DecisionKind
	}{
		{"before window", 21, 59, DecisionSendNow},
		{"late evening inside", 23, 30, DecisionDefer},
		{"past midnight inside", 2, 0, DecisionDefer},
		{"boundary start inclusive", 22, 0, DecisionDefer},
		{"boundary end exclusive", 6, 0, DecisionSendNow},
		{"mid morning outside", 10, 0, DecisionSendNow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prefs := immediatePrefs()
			prefs.QuietHoursStart = &start
			prefs.QuietHoursEnd = &end

			now := time.Date(2026, 9, 1, tt.hour, tt.min, 0, 0, time.UTC)
			d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", now)
			assert.Equal(t, tt.want, d.Kind)
			if tt.want == DecisionDefer {
				assert.Equal(t, ReasonQuietHours, d.Reason)
			}
		})
	}
}

func TestRouteQuietHoursUserTimezone(t *testing.T) {
	t.Parallel()

	// 12:00 UTC is 14:00 in Berlin during DST; a 13:00-15:00 Berlin window
	// applies even though the UTC clock reads noon.
	start := timewindow.TimeOfDay{Hour: 13}
	end := timewindow.TimeOfDay{Hour: 15}

	prefs := immediatePrefs()
	prefs.Timezone = "Europe/Berlin"
	prefs.QuietHoursStart = &start
	prefs.QuietHoursEnd = &end

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", now)
	assert.Equal(t, DecisionDefer, d.Kind)
	assert.Equal(t, ReasonQuietHours, d.Reason)
}

func TestRouteDigestFrequencyDefers(t *testing.T) {
	t.Parallel()

	prefs := immediatePrefs()
	prefs.Frequency = model.FrequencyDailyDigest

	d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", time.Now())
	require.Equal(t, DecisionDefer, d.Kind)
	assert.Equal(t, ReasonDigestFrequency, d.Reason)
}

func TestRouteDailyCapDefersNotDrops(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	prefs := immediatePrefs()
	prefs.MaxPerDay = 5
	prefs.DailyCount = 5
	prefs.DailyCountDay = "2026-09-01"

	d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", now)
	require.Equal(t, DecisionDefer, d.Kind)
	assert.Equal(t, ReasonDailyLimit, d.Reason)
}

func TestRouteZeroCapMeansUncapped(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	prefs := immediatePrefs()
	prefs.MaxPerDay = 0
	prefs.DailyCount = 50
	prefs.DailyCountDay = "2026-09-01"

	d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", now)
	assert.Equal(t, DecisionSendNow, d.Kind)
}

func TestRouteStaleCounterDoesNotBlock(t *testing.T) {
	t.Parallel()

	// Yesterday's exhausted counter is a different key; the cap has
	// implicitly reset.
	now := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	prefs := immediatePrefs()
	prefs.MaxPerDay = 5
	prefs.DailyCount = 5
	prefs.DailyCountDay = "2026-09-01"

	d := Route(prefs, []model.Channel{model.ChannelEmail}, "electronics", now)
	assert.Equal(t, DecisionSendNow, d.Kind)
}

func TestRouteChannelIntersection(t *testing.T) {
	t.Parallel()

	prefs := immediatePrefs() // email + push enabled
	prefs.PushEnabled = false

	d := Route(prefs, []model.Channel{model.ChannelPush, model.ChannelEmail, model.ChannelSMS}, "electronics", time.Now().UTC())
	require.Equal(t, DecisionSendNow, d.Kind)
	assert.Equal(t, []model.Channel{model.ChannelEmail}, d.Channels)
}

func TestRouteNoEnabledChannelDrops(t *testing.T) {
	t.Parallel()

	prefs := immediatePrefs()
	prefs.EmailEnabled = false
	prefs.PushEnabled = false

	d := Route(prefs, []model.Channel{model.ChannelEmail, model.ChannelPush}, "electronics", time.Now().UTC())
	require.Equal(t, DecisionDrop, d.Kind)
	assert.Equal(t, ReasonNoEnabledChannel, d.Reason)
}

func TestRouteCategoryFilterDrops(t *testing.T) {
	t.Parallel()

	prefs := immediatePrefs()
	prefs.Categories = []string{"electronics", "gaming"}

	d := Route(prefs, []model.Channel{model.ChannelEmail}, "furniture", time.Now().UTC())
	require.Equal(t, DecisionDrop, d.Kind)
	assert.Equal(t, ReasonCategoryFiltered, d.Reason)

	d = Route(prefs, []model.Channel{model.ChannelEmail}, "gaming", time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC))
	assert.Equal(t, DecisionSendNow, d.Kind)
}
