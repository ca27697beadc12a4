// Package timezone converts between named IANA zones and UTC, both for absolute instants and for
// recurring weekly values expressed as a weekday plus a time of day.
package timezone

import (
	"sort"
	"time"
)

// defaultCountryZones maps ISO 3166-1 numeric country codes to a representative zone.
var defaultCountryZones = map[string]string{
	"826": "Europe/London",
	"784": "Asia/Dubai",
	"156": "Asia/Shanghai",
	"620": "Europe/Lisbon",
}

// Converter performs every zone conversion used by the application.
type Converter struct {
	clock     Clock
	zones     Database
	countries map[string]string
}

// NewConverter builds a converter. extraCountries is merged over the default country table once; the
// resulting table is never modified afterwards.
func NewConverter(clock Clock, zones Database, extraCountries map[string]string) *Converter {
	if clock == nil {
		clock = SystemClock{}
	}
	if zones == nil {
		zones = NewIANADatabase()
	}
	countries := make(map[string]string, len(defaultCountryZones)+len(extraCountries))
	for code, zone := range defaultCountryZones {
		countries[code] = zone
	}
	for code, zone := range extraCountries {
		countries[code] = zone
	}
	return &Converter{clock: clock, zones: zones, countries: countries}
}

// Now returns the converter's notion of the current instant, in UTC.
func (c *Converter) Now() time.Time {
	return c.clock.Now().UTC()
}

// Location resolves a zone id.
func (c *Converter) Location(zoneID string) (*time.Location, error) {
	return c.zones.Load(zoneID)
}

// Validate reports whether zoneID resolves.
func (c *Converter) Validate(zoneID string) error {
	_, err := c.zones.Load(zoneID)
	return err
}

// ConvertToUtc interprets the wall-clock fields of local in zoneID and returns the matching UTC instant.
// The location attached to local is ignored. Local times skipped by a forward transition are shifted
// forward by the length of the gap; ambiguous local times resolve to the earlier instant.
func (c *Converter) ConvertToUtc(local time.Time, zoneID string) (time.Time, error) {
	loc, err := c.zones.Load(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	return resolveLeniently(local, loc), nil
}

// ConvertFromUtc expresses utc in zoneID.
func (c *Converter) ConvertFromUtc(utc time.Time, zoneID string) (time.Time, error) {
	loc, err := c.zones.Load(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	return utc.In(loc), nil
}

// AnchorToUtc places tod on the next occurrence of day, on or after today's date in zoneID, and
// returns that instant in UTC. tod may exceed 24h to reach into the following day.
func (c *Converter) AnchorToUtc(tod time.Duration, zoneID string, day time.Weekday) (time.Time, error) {
	loc, err := c.zones.Load(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	today := c.clock.Now().In(loc)
	anchor := nextOccurrence(today, day).Add(tod)
	return resolveLeniently(anchor, loc), nil
}

// ConvertTimeToUtc returns the UTC time of day of a recurring local (day, tod) pair.
func (c *Converter) ConvertTimeToUtc(tod time.Duration, zoneID string, day time.Weekday) (time.Duration, error) {
	utc, err := c.AnchorToUtc(tod, zoneID, day)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(utc), nil
}

// AnchorFromUtc places tod on the next UTC occurrence of day and expresses the instant in zoneID.
func (c *Converter) AnchorFromUtc(tod time.Duration, zoneID string, day time.Weekday) (time.Time, error) {
	loc, err := c.zones.Load(zoneID)
	if err != nil {
		return time.Time{}, err
	}
	anchor := nextOccurrence(c.clock.Now().UTC(), day).Add(tod)
	return anchor.In(loc), nil
}

// ConvertTimeFromUtc returns the local time of day of a recurring UTC (day, tod) pair.
func (c *Converter) ConvertTimeFromUtc(tod time.Duration, zoneID string, day time.Weekday) (time.Duration, error) {
	local, err := c.AnchorFromUtc(tod, zoneID, day)
	if err != nil {
		return 0, err
	}
	return TimeOfDay(local), nil
}

// GetTimeZoneByCountryCode looks up the zone for a numeric country code.
func (c *Converter) GetTimeZoneByCountryCode(code string) (string, bool) {
	zone, ok := c.countries[code]
	return zone, ok
}

// SupportedTimeZones lists the distinct zones reachable through country codes.
func (c *Converter) SupportedTimeZones() []string {
	seen := make(map[string]struct{}, len(c.countries))
	zones := make([]string, 0, len(c.countries))
	for _, zone := range c.countries {
		if _, ok := seen[zone]; ok {
			continue
		}
		seen[zone] = struct{}{}
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones
}

// nextOccurrence returns midnight (as a naive UTC wall clock) of the first date on or after ref's
// date that falls on day.
func nextOccurrence(ref time.Time, day time.Weekday) time.Time {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	ahead := (int(day) - int(midnight.Weekday()) + 7) % 7
	return midnight.AddDate(0, 0, ahead)
}

func resolveLeniently(wall time.Time, loc *time.Location) time.Time {
	naive := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC)

	var earliest time.Time
	found := false
	for _, offset := range candidateOffsets(naive, loc) {
		instant := naive.Add(-time.Duration(offset) * time.Second)
		if !sameWallClock(instant.In(loc), naive) {
			continue
		}
		if !found || instant.Before(earliest) {
			earliest, found = instant, true
		}
	}
	if found {
		return earliest.UTC()
	}

	// Skipped local time: keep the offset in force before the gap.
	_, before := naive.Add(-12 * time.Hour).In(loc).Zone()
	return naive.Add(-time.Duration(before) * time.Second).UTC()
}

// candidateOffsets collects the offsets in force around naive. UTC offsets never exceed 14h, so
// probing a day either side covers any transition touching that wall-clock time.
func candidateOffsets(naive time.Time, loc *time.Location) []int {
	var offsets []int
	for _, probe := range []time.Duration{-Day, 0, Day} {
		_, offset := naive.Add(probe).In(loc).Zone()
		duplicate := false
		for _, existing := range offsets {
			if existing == offset {
				duplicate = true
				break
			}
		}
		if !duplicate {
			offsets = append(offsets, offset)
		}
	}
	return offsets
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() &&
		a.Second() == b.Second() && a.Nanosecond() == b.Nanosecond()
}
