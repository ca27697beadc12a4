package timezone

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutoring-api/pkg/errors"
)

func newTestConverter() *Converter {
	clock := FixedClock{At: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)}
	return NewConverter(clock, NewIANADatabase(), nil)
}

func wall(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

func TestConvertToUtc(t *testing.T) {
	c := newTestConverter()

	cases := []struct {
		name  string
		local time.Time
		zone  string
		want  time.Time
	}{
		{"london summer", wall(2023, 6, 1, 12, 0, 0), "Europe/London", wall(2023, 6, 1, 11, 0, 0)},
		{"dubai", wall(2023, 6, 1, 16, 0, 0), "Asia/Dubai", wall(2023, 6, 1, 12, 0, 0)},
		{"london july", wall(2023, 7, 1, 12, 0, 0), "Europe/London", wall(2023, 7, 1, 11, 0, 0)},
		{"before spring forward", wall(2023, 3, 26, 0, 59, 59), "Europe/London", wall(2023, 3, 26, 0, 59, 59)},
		{"after spring forward", wall(2023, 3, 26, 2, 0, 0), "Europe/London", wall(2023, 3, 26, 1, 0, 0)},
		{"skipped time shifts forward", wall(2023, 3, 26, 1, 30, 0), "Europe/London", wall(2023, 3, 26, 1, 30, 0)},
		{"ambiguous time takes earlier", wall(2023, 10, 29, 1, 30, 0), "Europe/London", wall(2023, 10, 29, 0, 30, 0)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.ConvertToUtc(tc.local, tc.zone)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s got %s", tc.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestConvertToUtcIgnoresAttachedLocation(t *testing.T) {
	c := newTestConverter()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	got, err := c.ConvertToUtc(time.Date(2023, 6, 1, 12, 0, 0, 0, tokyo), "Europe/London")
	require.NoError(t, err)
	assert.True(t, wall(2023, 6, 1, 11, 0, 0).Equal(got))
}

func TestConvertFromUtc(t *testing.T) {
	c := newTestConverter()

	london, err := c.ConvertFromUtc(wall(2023, 6, 1, 11, 0, 0), "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, 12, london.Hour())

	dubai, err := c.ConvertFromUtc(wall(2023, 6, 1, 12, 0, 0), "Asia/Dubai")
	require.NoError(t, err)
	assert.Equal(t, 16, dubai.Hour())

	pre, err := c.ConvertFromUtc(wall(2023, 3, 26, 0, 59, 59), "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, "00:59:59", pre.Format("15:04:05"))

	post, err := c.ConvertFromUtc(wall(2023, 3, 26, 1, 0, 0), "Europe/London")
	require.NoError(t, err)
	assert.Equal(t, "02:00:00", post.Format("15:04:05"))
}

func TestRoundTripAcrossZones(t *testing.T) {
	c := newTestConverter()
	zones := []string{"Europe/London", "America/New_York", "Asia/Tokyo", "Asia/Kathmandu", "Australia/Lord_Howe", "Europe/Lisbon"}
	instants := []time.Time{
		wall(2024, 1, 15, 9, 30, 0),
		wall(2024, 6, 15, 23, 45, 0),
		wall(2024, 12, 31, 0, 0, 0),
	}

	for _, zone := range zones {
		for _, local := range instants {
			utc, err := c.ConvertToUtc(local, zone)
			require.NoError(t, err)
			back, err := c.ConvertFromUtc(utc, zone)
			require.NoError(t, err)
			assert.True(t, sameWallClock(back, local), "%s: %s -> %s -> %s", zone, local, utc, back)
		}
	}
}

func TestConvertTimeToUtc(t *testing.T) {
	c := newTestConverter()

	got, err := c.ConvertTimeToUtc(12*time.Hour, "Europe/London", time.Thursday)
	require.NoError(t, err)
	assert.Equal(t, 11*time.Hour, got)

	for day := time.Sunday; day <= time.Saturday; day++ {
		got, err := c.ConvertTimeToUtc(12*time.Hour, "Europe/London", day)
		require.NoError(t, err)
		assert.Equal(t, 11*time.Hour, got, day.String())
	}
}

func TestConvertTimeFromUtc(t *testing.T) {
	c := newTestConverter()

	for day := time.Sunday; day <= time.Saturday; day++ {
		got, err := c.ConvertTimeFromUtc(11*time.Hour, "Europe/London", day)
		require.NoError(t, err)
		assert.Equal(t, 12*time.Hour, got, day.String())
	}
}

func TestRecurringConversionCrossesMidnight(t *testing.T) {
	c := newTestConverter()

	anchored, err := c.AnchorToUtc(23*time.Hour+30*time.Minute, "America/New_York", time.Saturday)
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, anchored.Weekday())
	assert.Equal(t, 3*time.Hour+30*time.Minute, TimeOfDay(anchored))

	local, err := c.ConvertTimeFromUtc(3*time.Hour+30*time.Minute, "America/New_York", time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour+30*time.Minute, local)

	back, err := c.AnchorFromUtc(3*time.Hour+30*time.Minute, "America/New_York", time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, back.Weekday())
}

func TestRecurringRoundTrip(t *testing.T) {
	c := newTestConverter()
	for _, zone := range []string{"Asia/Tokyo", "America/Los_Angeles", "Asia/Kolkata"} {
		for day := time.Sunday; day <= time.Saturday; day++ {
			utc, err := c.AnchorToUtc(9*time.Hour+15*time.Minute, zone, day)
			require.NoError(t, err)
			local, err := c.ConvertTimeFromUtc(TimeOfDay(utc), zone, utc.Weekday())
			require.NoError(t, err)
			assert.Equal(t, 9*time.Hour+15*time.Minute, local, "%s %s", zone, day)
		}
	}
}

func TestAnchorIncludesToday(t *testing.T) {
	c := newTestConverter()

	// 2023-06-01 is a Thursday in London.
	got, err := c.AnchorToUtc(18*time.Hour, "Europe/London", time.Thursday)
	require.NoError(t, err)
	assert.True(t, wall(2023, 6, 1, 17, 0, 0).Equal(got), got.String())
}

func TestRecurringConversionUsesClockSeason(t *testing.T) {
	winter := NewConverter(FixedClock{At: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)}, nil, nil)
	summer := newTestConverter()

	w, err := winter.ConvertTimeToUtc(time.Hour, "Europe/London", time.Sunday)
	require.NoError(t, err)
	s, err := summer.ConvertTimeToUtc(time.Hour, "Europe/London", time.Sunday)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, w)
	assert.Equal(t, time.Duration(0), s)

	after, err := summer.ConvertTimeToUtc(3*time.Hour, "Europe/London", time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, s+2*time.Hour, after)
}

func TestInvalidTimeZone(t *testing.T) {
	c := newTestConverter()

	_, err := c.ConvertToUtc(wall(2023, 6, 1, 12, 0, 0), "Invalid/TimeZone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTimeZone))

	_, err = c.ConvertFromUtc(wall(2023, 6, 1, 12, 0, 0), "")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTimeZone))

	_, err = c.ConvertTimeToUtc(time.Hour, "Local", time.Monday)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTimeZone))

	assert.NoError(t, c.Validate("UTC"))
}

func TestGetTimeZoneByCountryCode(t *testing.T) {
	c := NewConverter(nil, nil, map[string]string{"840": "America/New_York"})

	zone, ok := c.GetTimeZoneByCountryCode("826")
	assert.True(t, ok)
	assert.Equal(t, "Europe/London", zone)

	zone, ok = c.GetTimeZoneByCountryCode("840")
	assert.True(t, ok)
	assert.Equal(t, "America/New_York", zone)

	_, ok = c.GetTimeZoneByCountryCode("999")
	assert.False(t, ok)

	assert.Equal(t, []string{"America/New_York", "Asia/Dubai", "Asia/Shanghai", "Europe/Lisbon", "Europe/London"}, c.SupportedTimeZones())
}

func TestParseAndFormatClock(t *testing.T) {
	d, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+30*time.Minute, d)

	d, err = ParseClock("26:00")
	require.NoError(t, err)
	assert.Equal(t, 26*time.Hour, d)

	for _, raw := range []string{"", "9", "48:00", "10:60", "aa:bb", "1:2:3:4", "100:00"} {
		_, err := ParseClock(raw)
		assert.Error(t, err, raw)
	}

	assert.Equal(t, "07:05", FormatClock(7*time.Hour+5*time.Minute))
	assert.Equal(t, "24:00", FormatClock(Day))
}
