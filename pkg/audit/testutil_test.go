package audit

import (
	"errors"
	"fmt"
	"time"
)

var baseTime = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func testEntry(i int, mutate func(*Entry)) *Entry {
	e := &Entry{
		EventID:     fmt.Sprintf("hearing-%d", i),
		AuthorityID: "house-energy",
		Version:     1,
		CategoryID:  "oversight",
		IndicatorID: "watchdog",
		TriggerID:   "gao_investigation",
		Severity:    "high",
		FiredAt:     baseTime.Add(time.Duration(i) * time.Minute),
		Outcome:     OutcomeDelivered,
	}
	if mutate != nil {
		mutate(e)
	}
	return e
}

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}
