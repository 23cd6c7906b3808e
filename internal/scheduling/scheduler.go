package scheduling

import (
	"fmt"
	"time"
)

// Schedule expands a timing rule into the concrete calendar dates on which an
// activity occurs within a phase window. Pure: no I/O, no clock reads.
//
// phaseStart and phaseEnd bound the window; produced dates never fall outside
// it. A nil rule defaults to a single occurrence on the phase's first day.
// Dates are normalized to midnight UTC of the target day.
func Schedule(rule TimingRule, phaseStart, phaseEnd time.Time) ([]time.Time, error) {
	if phaseEnd.Before(phaseStart) {
		return nil, fmt.Errorf("phase window ends %s before it starts %s",
			phaseEnd.Format(time.DateOnly), phaseStart.Format(time.DateOnly))
	}

	start := truncateToDay(phaseStart)
	end := truncateToDay(phaseEnd)
	phaseDays := int(end.Sub(start).Hours()/24) + 1

	if rule == nil {
		return []time.Time{start}, nil
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	switch r := rule.(type) {
	case OneTime:
		return []time.Time{dayInPhase(start, clampDay(r.PhaseDay, phaseDays))}, nil

	case DailyRange:
		first, last := clampRange(r.StartDay, r.EndDay, phaseDays)
		dates := make([]time.Time, 0, last-first+1)
		for day := first; day <= last; day++ {
			dates = append(dates, dayInPhase(start, day))
		}
		return dates, nil

	case SpecificDays:
		first, last := clampRange(r.StartDay, r.EndDay, phaseDays)
		wanted := make(map[time.Weekday]bool, len(r.Weekdays))
		for _, wd := range r.Weekdays {
			wanted[wd] = true
		}
		var dates []time.Time
		for day := first; day <= last; day++ {
			date := dayInPhase(start, day)
			if wanted[date.Weekday()] {
				dates = append(dates, date)
			}
		}
		if len(dates) == 0 {
			// The window is too short to hit any requested weekday; fall back
			// to the range start so a valid rule never schedules nothing.
			dates = []time.Time{dayInPhase(start, first)}
		}
		return dates, nil

	case EveryNDays:
		first, last := clampRange(r.StartDay, r.EndDay, phaseDays)
		var dates []time.Time
		for day := first; day <= last; day += r.Interval {
			dates = append(dates, dayInPhase(start, day))
		}
		return dates, nil

	case Dependent:
		day := clampDay(r.DaysAfter+1, phaseDays)
		return []time.Time{dayInPhase(start, day)}, nil

	default:
		return nil, fmt.Errorf("unknown timing rule variant %T", rule)
	}
}

// dayInPhase converts a 1-indexed phase day to a calendar date.
func dayInPhase(phaseStart time.Time, day int) time.Time {
	return phaseStart.AddDate(0, 0, day-1)
}

func clampDay(day, phaseDays int) int {
	if day < 1 {
		return 1
	}
	if day > phaseDays {
		return phaseDays
	}
	return day
}

func clampRange(startDay, endDay, phaseDays int) (int, int) {
	return clampDay(startDay, phaseDays), clampDay(endDay, phaseDays)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
