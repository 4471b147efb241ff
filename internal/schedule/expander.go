package schedule

import (
	"fmt"
	"sort"
	"time"
)

// LessonDuration — фиксированная длительность занятия во всей системе.
const LessonDuration = time.Hour

// Slot — конкретный интервал занятия.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Rule описывает еженедельное повторение: дни недели, время начала
// и диапазон дат. Правило эфемерно — оно разворачивается в слоты
// один раз и нигде не хранится.
type Rule struct {
	DaysOfWeek  []time.Weekday `json:"days_of_week"` // 0 = Sunday, 6 = Saturday
	StartHour   int            `json:"start_hour"`   // 0-23
	StartMinute int            `json:"start_minute"` // 0-59
	RangeStart  time.Time      `json:"range_start"`
	RangeEnd    time.Time      `json:"range_end"`
}

// Expand детерминированно разворачивает правило в хронологический список
// слотов. Перебирает календарные дни от RangeStart до RangeEnd включительно
// и для каждого подходящего дня недели выдаёт один слот длительностью
// LessonDuration. RangeEnd раньше RangeStart — пустой результат, не ошибка.
func Expand(rule Rule) ([]Slot, error) {
	if rule.StartHour < 0 || rule.StartHour > 23 {
		return nil, fmt.Errorf("start hour must be in 0..23, got %d", rule.StartHour)
	}
	if rule.StartMinute < 0 || rule.StartMinute > 59 {
		return nil, fmt.Errorf("start minute must be in 0..59, got %d", rule.StartMinute)
	}

	first := truncateToDay(rule.RangeStart)
	last := truncateToDay(rule.RangeEnd)
	if last.Before(first) {
		return nil, nil
	}

	if len(rule.DaysOfWeek) == 0 {
		return nil, fmt.Errorf("days of week must not be empty")
	}

	days := make(map[time.Weekday]bool, len(rule.DaysOfWeek))
	for _, d := range rule.DaysOfWeek {
		if d < time.Sunday || d > time.Saturday {
			return nil, fmt.Errorf("invalid weekday %d", d)
		}
		days[d] = true
	}

	loc := rule.RangeStart.Location()

	var slots []Slot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !days[day.Weekday()] {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(),
			rule.StartHour, rule.StartMinute, 0, 0, loc)
		slots = append(slots, Slot{Start: start, End: start.Add(LessonDuration)})
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })

	return slots, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
