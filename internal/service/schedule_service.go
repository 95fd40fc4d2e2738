package service

import (
	"time"
)

// Posting window. Posts are only ever scheduled between 09:00 and 22:00
// local time.
const (
	windowStartHour = 9
	windowEndHour   = 22
	windowWidth     = windowEndHour - windowStartHour
)

type ScheduleService interface {
	ComputeSchedule(numPosts, days int, now time.Time) []time.Time
}

type scheduleService struct{}

func NewScheduleService() ScheduleService {
	return &scheduleService{}
}

func (s *scheduleService) ComputeSchedule(numPosts, days int, now time.Time) []time.Time {
	return ComputeSchedule(numPosts, days, now)
}

// ComputeSchedule spreads numPosts timestamps over days calendar days inside
// the posting window. It is total: numPosts <= 0 yields an empty slice and
// days <= 0 is treated as a single day. Returned timestamps are
// non-decreasing and sit on full hours.
func ComputeSchedule(numPosts, days int, now time.Time) []time.Time {
	times := []time.Time{}
	if numPosts <= 0 {
		return times
	}
	if days <= 0 {
		days = 1
	}

	anchor := nextFullHour(now)
	if anchor.Hour() >= windowEndHour {
		anchor = atHour(anchor.AddDate(0, 0, 1), windowStartHour)
	} else if anchor.Hour() < windowStartHour {
		anchor = atHour(anchor, windowStartHour)
	}

	postsPerDay := ceilDiv(numPosts, days)
	if postsPerDay > windowWidth {
		// More posts per day than the window has hour slots; stretch the
		// schedule over enough days instead.
		days = ceilDiv(numPosts, windowWidth)
		postsPerDay = ceilDiv(numPosts, days)
	}

	for i := 0; i < numPosts; i++ {
		dayIdx := i / postsPerDay
		slotIdx := i % postsPerDay
		day := anchor.AddDate(0, 0, dayIdx)

		if postsPerDay == 1 {
			t := day
			if t.Hour() < windowStartHour {
				t = atHour(t, windowStartHour)
			} else if t.Hour() > windowEndHour {
				t = atHour(t, windowEndHour)
			}
			times = append(times, t)
			continue
		}

		baseHour := day.Hour()
		if baseHour < windowStartHour {
			baseHour = windowStartHour
		}
		hoursRemaining := windowEndHour - baseHour
		if hoursRemaining < postsPerDay-1 && slotIdx > hoursRemaining {
			// The slot does not fit in what is left of this day's window;
			// push it onto a later day starting from the window open.
			extraDays := ceilDiv(slotIdx-hoursRemaining, windowWidth)
			day = day.AddDate(0, 0, extraDays)
			baseHour = windowStartHour
			hoursRemaining = windowWidth
		}

		spacing := hoursRemaining / postsPerDay
		if spacing < 1 {
			spacing = 1
		}
		hour := baseHour + slotIdx*spacing
		if hour > windowEndHour {
			hour = windowEndHour
		}
		times = append(times, atHour(day, hour))
	}

	return times
}

func nextFullHour(t time.Time) time.Time {
	return atHour(t, t.Hour()).Add(time.Hour)
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
