package timewindow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"22:00", New(22, 0), false},
		{"06:30", New(6, 30), false},
		{"00:00", New(0, 0), false},
		{" 09:15 ", New(9, 15), false},
		{"25:00", TimeOfDay{}, true},
		{"9pm", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDay_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "22:00", New(22, 0).String())
	assert.Equal(t, "06:05", New(6, 5).String())
}

func TestTimeOfDay_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(New(23, 30))
	require.NoError(t, err)
	assert.Equal(t, `"23:30"`, string(data))

	var got TimeOfDay
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, New(23, 30), got)
}

func TestTimeOfDay_Scan(t *testing.T) {
	t.Parallel()

	var tod TimeOfDay
	require.NoError(t, tod.Scan("22:00:00"))
	assert.Equal(t, New(22, 0), tod)

	require.NoError(t, tod.Scan([]byte("06:30")))
	assert.Equal(t, New(6, 30), tod)

	require.NoError(t, tod.Scan(time.Date(2026, 8, 1, 9, 15, 0, 0, time.UTC)))
	assert.Equal(t, New(9, 15), tod)

	assert.Error(t, tod.Scan(42))
}

func TestWindow_Contains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window Window
		now    TimeOfDay
		want   bool
	}{
		{"inside simple window", Window{New(9, 0), New(17, 0)}, New(12, 0), true},
		{"before simple window", Window{New(9, 0), New(17, 0)}, New(8, 59), false},
		{"at start is inside", Window{New(9, 0), New(17, 0)}, New(9, 0), true},
		{"at end is outside", Window{New(9, 0), New(17, 0)}, New(17, 0), false},
		{"wrap: late evening", Window{New(22, 0), New(6, 0)}, New(23, 30), true},
		{"wrap: early morning", Window{New(22, 0), New(6, 0)}, New(5, 59), true},
		{"wrap: at start", Window{New(22, 0), New(6, 0)}, New(22, 0), true},
		{"wrap: at end", Window{New(22, 0), New(6, 0)}, New(6, 0), false},
		{"wrap: midday outside", Window{New(22, 0), New(6, 0)}, New(12, 0), false},
		{"empty window never contains", Window{New(8, 0), New(8, 0)}, New(8, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.window.Contains(tt.now))
		})
	}
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))

	ny := LoadLocation("America/New_York")
	assert.Equal(t, "America/New_York", ny.String())
}

func TestPeriodKeys(t *testing.T) {
	t.Parallel()

	// 2026-01-01 02:00 UTC is still 2025-12-31 in New York
	instant := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	ny := LoadLocation("America/New_York")

	assert.Equal(t, "2026-01-01", DayKey(instant, time.UTC))
	assert.Equal(t, "2025-12-31", DayKey(instant, ny))

	// ISO week 1 of 2026 starts Monday 2025-12-29
	assert.Equal(t, "2026-W01", WeekKey(instant, time.UTC))

	midYear := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W36", WeekKey(midYear, time.UTC))
}
