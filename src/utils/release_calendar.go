package utils

import (
	"log"
	"time"

	"github.com/scmhub/calendar"

	"github.com/lucasbarnes96/truenorth-index/src/models"
)

// Official CPI figures land mid-month at 08:30 Eastern covering the prior
// reference month.
const (
	releaseDayOfMonth = 15
	releaseHourUTC    = 12
	releaseMinuteUTC  = 30
)

// Next-release statuses.
const (
	ReleaseUpcoming  = "upcoming"  // taken from the stored calendar feed
	ReleaseEstimated = "estimated" // business-day heuristic, no feed ahead
)

// ReleaseCalendar resolves the next official release moment. Stored calendar
// events win; when none lie ahead the mid-month slot is estimated on the
// next Canadian business day.
type ReleaseCalendar struct {
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewReleaseCalendar loads the Toronto business-day calendar (official
// releases follow Canadian market holidays).
func NewReleaseCalendar() *ReleaseCalendar {
	cal := calendar.GetCalendar("xtse")
	if cal == nil {
		log.Printf("WARNING: Failed to load calendar 'xtse'. Using simple fallback (Mon-Fri).")
		return &ReleaseCalendar{Fallback: true, Timezone: time.UTC}
	}
	return &ReleaseCalendar{Calendar: cal, Fallback: false, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (rc *ReleaseCalendar) IsBusinessDay(date time.Time) bool {
	if rc.Timezone != nil {
		date = date.In(rc.Timezone)
	}

	if rc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return rc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// NextRelease returns the earliest stored event at or after now with its
// countdown filled in, or an estimated mid-month slot when the feed has no
// future events.
func (rc *ReleaseCalendar) NextRelease(events *models.MReleaseEvents, now time.Time) *models.MReleaseEvent {
	now = now.UTC()

	var next *models.MReleaseEvent
	var nextAt time.Time
	if events != nil {
		for i := range events.Events {
			at, err := events.Events[i].ReleaseTime()
			if err != nil || at.Before(now) {
				continue
			}
			if next == nil || at.Before(nextAt) {
				event := events.Events[i]
				next = &event
				nextAt = at
			}
		}
	}
	if next != nil {
		next.CountdownSeconds = int64(nextAt.Sub(now).Seconds())
		next.Status = ReleaseUpcoming
		return next
	}

	at := rc.estimateNextSlot(now)
	return &models.MReleaseEvent{
		Name:             "cpi_release",
		RefPeriod:        at.AddDate(0, -1, 0).Format("2006-01"),
		ReleaseAtUTC:     at.Format(time.RFC3339),
		CountdownSeconds: int64(at.Sub(now).Seconds()),
		Status:           ReleaseEstimated,
	}
}

// -----------------------------------------------------------------------------

// estimateNextSlot finds the next mid-month release moment, pushed forward
// to a business day.
func (rc *ReleaseCalendar) estimateNextSlot(now time.Time) time.Time {
	slot := time.Date(now.Year(), now.Month(), releaseDayOfMonth, releaseHourUTC, releaseMinuteUTC, 0, 0, time.UTC)
	slot = rc.nextBusinessDay(slot)
	if !slot.Before(now) {
		return slot
	}

	slot = time.Date(now.Year(), now.Month(), 1, releaseHourUTC, releaseMinuteUTC, 0, 0, time.UTC).
		AddDate(0, 1, releaseDayOfMonth-1)
	return rc.nextBusinessDay(slot)
}

func (rc *ReleaseCalendar) nextBusinessDay(t time.Time) time.Time {
	for i := 0; i < 7 && !rc.IsBusinessDay(t); i++ {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
