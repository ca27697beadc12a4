package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/tutoring-api/pkg/timezone"
)

// TimeSlot is a recurring window on one day of the week. Start lies in [0,24h) and End in [0,24h].
// When End <= Start the slot runs past midnight into the following day; End == Start covers a full
// day. LocalDay remembers the weekday the tutor entered the slot under, which can differ from the
// UTC day the slot is stored on.
type TimeSlot struct {
	Start    time.Duration
	End      time.Duration
	LocalDay time.Weekday
}

// NewTimeSlot builds a slot from either midnight-crossing form: 22:00-02:00 or 22:00-26:00. Equal
// bounds describe a full day.
func NewTimeSlot(start, end time.Duration, localDay time.Weekday) (TimeSlot, error) {
	if start >= 0 && start < timezone.Day && end <= start {
		end += timezone.Day
	}
	if start < 0 || end < 0 || end <= start || end-start > timezone.Day {
		return TimeSlot{}, fmt.Errorf("invalid time slot %s-%s", timezone.FormatClock(start), timezone.FormatClock(end))
	}
	span := end - start
	start %= timezone.Day
	end = start + span
	if end > timezone.Day {
		end -= timezone.Day
	}
	return TimeSlot{Start: start, End: end, LocalDay: localDay}, nil
}

// Wraps reports whether the slot crosses midnight.
func (s TimeSlot) Wraps() bool {
	return s.End <= s.Start
}

// Span returns the slot length.
func (s TimeSlot) Span() time.Duration {
	if s.Wraps() {
		return s.End + timezone.Day - s.Start
	}
	return s.End - s.Start
}

// Contains reports whether a time of day falls inside [Start, End), honouring wraparound.
func (s TimeSlot) Contains(t time.Duration) bool {
	if s.Wraps() {
		return t >= s.Start || t < s.End
	}
	return t >= s.Start && t < s.End
}

// ContainsRange reports whether the whole range from start to end fits in the slot. The end boundary
// is inclusive, so an end of 00:00 matches a slot that closes at 24:00.
func (s TimeSlot) ContainsRange(start, end time.Duration) bool {
	if !s.Contains(start) {
		return false
	}
	length := rangeLength(start, end)
	offset := start
	if offset < s.Start {
		offset += timezone.Day
	}
	return offset+length <= s.Start+s.Span()
}

// ContainsCarryOver reports whether the range fits in the part of a wrapping slot that spills past
// midnight into the next day.
func (s TimeSlot) ContainsCarryOver(start, end time.Duration) bool {
	if !s.Wraps() {
		return false
	}
	return start < s.End && start+rangeLength(start, end) <= s.End
}

func rangeLength(start, end time.Duration) time.Duration {
	length := end - start
	if length <= 0 {
		length += timezone.Day
	}
	return length
}

type timeSlotJSON struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	LocalDay int    `json:"local_day"`
}

// MarshalJSON stores the slot as "HH:MM" strings.
func (s TimeSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeSlotJSON{
		Start:    timezone.FormatClock(s.Start),
		End:      timezone.FormatClock(s.End),
		LocalDay: int(s.LocalDay),
	})
}

// UnmarshalJSON parses the stored representation.
func (s *TimeSlot) UnmarshalJSON(data []byte) error {
	var raw timeSlotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := timezone.ParseClock(raw.Start)
	if err != nil {
		return err
	}
	end, err := timezone.ParseClock(raw.End)
	if err != nil {
		return err
	}
	if start >= timezone.Day || end > timezone.Day || raw.LocalDay < 0 || raw.LocalDay > 6 {
		return fmt.Errorf("stored time slot %s-%s out of range", raw.Start, raw.End)
	}
	*s = TimeSlot{Start: start, End: end, LocalDay: time.Weekday(raw.LocalDay)}
	return nil
}

// Availability is the stored row for one tutor and one UTC weekday.
type Availability struct {
	ID        string         `db:"id" json:"id"`
	TutorID   string         `db:"tutor_id" json:"tutor_id"`
	Day       time.Weekday   `db:"day" json:"day"`
	TimeSlots types.JSONText `db:"time_slots" json:"time_slots"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Slots decodes the stored slots.
func (a Availability) Slots() ([]TimeSlot, error) {
	if len(a.TimeSlots) == 0 {
		return nil, nil
	}
	var slots []TimeSlot
	if err := a.TimeSlots.Unmarshal(&slots); err != nil {
		return nil, fmt.Errorf("decode availability %s: %w", a.ID, err)
	}
	return slots, nil
}

// SetSlots encodes slots into the row.
func (a *Availability) SetSlots(slots []TimeSlot) error {
	if slots == nil {
		slots = []TimeSlot{}
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	a.TimeSlots = types.JSONText(raw)
	return nil
}

// DaySlot is a slot tagged with the UTC day it is stored under.
type DaySlot struct {
	Day  time.Weekday
	Slot TimeSlot
}

// WeeklyAvailability is a tutor's recurring availability keyed by UTC weekday.
type WeeklyAvailability struct {
	days map[time.Weekday][]TimeSlot
}

// NewWeeklyAvailability decodes stored rows.
func NewWeeklyAvailability(rows []Availability) (WeeklyAvailability, error) {
	w := WeeklyAvailability{days: make(map[time.Weekday][]TimeSlot, len(rows))}
	for _, row := range rows {
		slots, err := row.Slots()
		if err != nil {
			return WeeklyAvailability{}, err
		}
		w.days[row.Day] = append(w.days[row.Day], slots...)
	}
	return w, nil
}

// Slots returns the slots stored under a UTC weekday.
func (w WeeklyAvailability) Slots(day time.Weekday) []TimeSlot {
	return w.days[day]
}

// Days lists the UTC weekdays that hold at least one slot.
func (w WeeklyAvailability) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(w.days))
	for day, slots := range w.days {
		if len(slots) > 0 {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// Replace discards every slot the tutor entered under localDay and stores slots in its place. Slots
// are appended in the given order; overlapping slots are kept as they are. The UTC days whose slot
// list changed are returned.
func (w *WeeklyAvailability) Replace(localDay time.Weekday, slots []DaySlot) []time.Weekday {
	if w.days == nil {
		w.days = make(map[time.Weekday][]TimeSlot)
	}
	touched := make(map[time.Weekday]struct{})
	for day, existing := range w.days {
		kept := existing[:0:0]
		for _, slot := range existing {
			if slot.LocalDay == localDay {
				touched[day] = struct{}{}
				continue
			}
			kept = append(kept, slot)
		}
		w.days[day] = kept
	}
	for _, ds := range slots {
		ds.Slot.LocalDay = localDay
		w.days[ds.Day] = append(w.days[ds.Day], ds.Slot)
		touched[ds.Day] = struct{}{}
	}

	days := make([]time.Weekday, 0, len(touched))
	for day := range touched {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// ContainsBooking reports whether a booking starting at utcStart and ending at utcEnd lies inside one
// recurring slot: either a slot stored under the start's weekday, or the after-midnight part of a
// wrapping slot stored under the previous weekday.
func (w WeeklyAvailability) ContainsBooking(utcStart, utcEnd time.Time) bool {
	start := timezone.TimeOfDay(utcStart)
	end := timezone.TimeOfDay(utcEnd)
	day := utcStart.Weekday()
	for _, slot := range w.days[day] {
		if slot.ContainsRange(start, end) {
			return true
		}
	}
	for _, slot := range w.days[(day+6)%7] {
		if slot.ContainsCarryOver(start, end) {
			return true
		}
	}
	return false
}

// ParseWeekday accepts English day names in any case or the numbers 0 (Sunday) to 6.
func ParseWeekday(raw string) (time.Weekday, error) {
	value := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("invalid day of week %q", raw)
		}
		return time.Weekday(n), nil
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		if strings.EqualFold(day.String(), value) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("invalid day of week %q", raw)
}

// TimeSlotInput is a slot as entered by a tutor, in their local zone. Hours may reach 47 so that
// "22:00"-"26:00" expresses a slot crossing midnight.
type TimeSlotInput struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// DayAvailabilityInput lists the local slots for one weekday.
type DayAvailabilityInput struct {
	Day       string          `json:"day" validate:"required"`
	TimeSlots []TimeSlotInput `json:"time_slots" validate:"required,min=1,dive"`
}

// SetAvailabilityRequest replaces a tutor's availability on the listed days.
type SetAvailabilityRequest struct {
	Availabilities []DayAvailabilityInput `json:"availabilities" validate:"required,min=1,dive"`
}
