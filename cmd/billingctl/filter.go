package main

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

type refreshFlags struct {
	userIDs    []string
	activeOnly bool
	daysLeft   int
	daysAgo    int
	rangeStart int
	rangeEnd   int
}

// filter converts the flags into a ledger filter. Day criteria apply only
// when their flag was given, so zero means "today" rather than "unset".
func (f refreshFlags) filter(changed func(name string) bool) (repository.SubscriptionFilter, error) {
	filter := repository.SubscriptionFilter{ActiveOnly: f.activeOnly}

	for _, raw := range f.userIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid user id %q: %w", raw, err)
		}
		filter.UserIDs = append(filter.UserIDs, id)
	}

	if changed("days-left") {
		if f.daysLeft < 0 {
			return filter, fmt.Errorf("--days-left must not be negative")
		}
		v := f.daysLeft
		filter.DaysLeft = &v
	}
	if changed("days-ago") {
		if f.daysAgo < 0 {
			return filter, fmt.Errorf("--days-ago must not be negative")
		}
		v := f.daysAgo
		filter.DaysAgo = &v
	}
	if changed("range-start") && changed("range-end") {
		if f.rangeStart > f.rangeEnd {
			return filter, fmt.Errorf("--range-start must not be after --range-end")
		}
		filter.Range = &repository.DayRange{Start: f.rangeStart, End: f.rangeEnd}
	}
	return filter, nil
}
