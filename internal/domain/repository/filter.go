package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// DayRange selects period ends between Start and End days from now.
type DayRange struct {
	Start int
	End   int
}

// SubscriptionFilter selects ledger rows. Every set criterion must match.
type SubscriptionFilter struct {
	// ActiveOnly keeps rows whose status is active or trialing.
	ActiveOnly bool
	UserIDs    []uuid.UUID
	// DaysLeft keeps rows whose period ends on the calendar day N days from now.
	DaysLeft *int
	// DaysAgo keeps rows whose period ended on the calendar day N days ago.
	DaysAgo *int
	Range   *DayRange
}

// TimeWindow is an inclusive period-end window.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// Windows returns the period-end windows the filter requires relative to now.
func (f SubscriptionFilter) Windows(now time.Time) []TimeWindow {
	var windows []TimeWindow
	if f.DaysAgo != nil {
		day := now.AddDate(0, 0, -*f.DaysAgo)
		windows = append(windows, TimeWindow{From: startOfDay(day), To: endOfDay(day)})
	}
	if f.DaysLeft != nil {
		day := now.AddDate(0, 0, *f.DaysLeft)
		windows = append(windows, TimeWindow{From: startOfDay(day), To: endOfDay(day)})
	}
	if f.Range != nil {
		windows = append(windows, TimeWindow{
			From: startOfDay(now.AddDate(0, 0, f.Range.Start)),
			To:   endOfDay(now.AddDate(0, 0, f.Range.End)),
		})
	}
	return windows
}

// Matches evaluates the filter against a row in memory.
func (f SubscriptionFilter) Matches(sub *model.UserSubscription, now time.Time) bool {
	if f.ActiveOnly && !sub.Status.IsEntitling() {
		return false
	}
	if f.UserIDs != nil {
		found := false
		for _, id := range f.UserIDs {
			if id == sub.UserID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, w := range f.Windows(now) {
		if sub.CurrentPeriodEnd == nil || !w.Contains(*sub.CurrentPeriodEnd) {
			return false
		}
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
