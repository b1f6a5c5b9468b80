package scheduler

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
)

const (
	// MinCustomInterval is the shortest custom interval in minutes
	MinCustomInterval = 5

	// MaxCustomInterval is the longest custom interval in minutes
	MaxCustomInterval = 1440
)

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// compiled is a validated schedule ready for evaluation
type compiled struct {
	schedule inventory.Schedule
	location *time.Location
	days     map[time.Weekday]bool
	slots    []cron.Schedule
}

// Validate checks a schedule and returns an error wrapping
// inventory.ErrInvalidSchedule when it cannot be used
func Validate(s inventory.Schedule) error {
	_, err := compile(s)
	return err
}

func compile(s inventory.Schedule) (*compiled, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", inventory.ErrInvalidSchedule, fmt.Sprintf(format, args...))
	}

	switch s.Frequency {
	case inventory.FrequencyRealtime, inventory.FrequencyHourly, inventory.FrequencyDaily:
	case inventory.FrequencyCustom:
		if s.CustomInterval < MinCustomInterval || s.CustomInterval > MaxCustomInterval {
			return nil, invalid("customInterval must be between %d and %d minutes, got %d",
				MinCustomInterval, MaxCustomInterval, s.CustomInterval)
		}
	default:
		return nil, invalid("unknown frequency %q", s.Frequency)
	}

	location := time.UTC
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return nil, invalid("unknown timezone %q", s.Timezone)
		}
		location = loc
	}

	days, err := allowedDays(s)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if len(days) == 0 {
		return nil, invalid("activeDays and excludeWeekends leave no day to sync on")
	}

	c := &compiled{schedule: s.Clone(), location: location, days: days}
	for _, slot := range s.SyncTimes {
		hour, minute, err := parseTimeOfDay(slot)
		if err != nil {
			return nil, invalid("%v", err)
		}
		spec := fmt.Sprintf("CRON_TZ=%s %d %d * * %s", location.String(), minute, hour, dowField(days))
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, invalid("syncTime %q: %v", slot, err)
		}
		c.slots = append(c.slots, sched)
	}
	return c, nil
}

// parseTimeOfDay accepts a 24h HH:MM time
func parseTimeOfDay(value string) (int, int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, 0, fmt.Errorf("syncTime %q must be HH:MM", value)
	}
	hour, err := strconv.Atoi(value[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("syncTime %q has an invalid hour", value)
	}
	minute, err := strconv.Atoi(value[3:])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("syncTime %q has an invalid minute", value)
	}
	return hour, minute, nil
}

// allowedDays applies activeDays and excludeWeekends to the week
func allowedDays(s inventory.Schedule) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool, 7)
	if len(s.ActiveDays) == 0 {
		for d := time.Sunday; d <= time.Saturday; d++ {
			days[d] = true
		}
	}
	for _, name := range s.ActiveDays {
		d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		days[d] = true
	}
	if s.ExcludeWeekends {
		delete(days, time.Saturday)
		delete(days, time.Sunday)
	}
	return days, nil
}

// dowField renders the day set as a cron day-of-week list
func dowField(days map[time.Weekday]bool) string {
	if len(days) == 7 {
		return "*"
	}
	list := make([]int, 0, len(days))
	for d := range days {
		list = append(list, int(d))
	}
	slices.Sort(list)
	parts := make([]string, len(list))
	for i, d := range list {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// Due reports whether a profile's schedule asks for a run at now. tolerance
// is how long after a daily slot the slot may still fire.
func Due(profile *inventory.Profile, now time.Time, tolerance time.Duration) (bool, error) {
	c, err := compile(profile.Schedule)
	if err != nil {
		return false, err
	}
	return c.due(profile.LastTriggeredAt, now, tolerance), nil
}

func (c *compiled) due(last *time.Time, now time.Time, tolerance time.Duration) bool {
	if c.schedule.Frequency == inventory.FrequencyDaily && len(c.slots) > 0 {
		// cron day-of-week already carries the day filter, evaluated on the
		// slot's own date
		for _, slot := range c.slots {
			at := slot.Next(now.Add(-tolerance).Add(-time.Second))
			if at.After(now) {
				continue
			}
			if last == nil || last.Before(at) {
				return true
			}
		}
		return false
	}

	if !c.days[now.In(c.location).Weekday()] {
		return false
	}

	switch c.schedule.Frequency {
	case inventory.FrequencyRealtime:
		return true
	case inventory.FrequencyHourly:
		return elapsed(last, now, time.Hour)
	case inventory.FrequencyCustom:
		return elapsed(last, now, time.Duration(c.schedule.CustomInterval)*time.Minute)
	case inventory.FrequencyDaily:
		return elapsed(last, now, 24*time.Hour)
	}
	return false
}

func elapsed(last *time.Time, now time.Time, interval time.Duration) bool {
	return last == nil || now.Sub(*last) >= interval
}
