package calendar

import (
	"errors"
	"time"
)

var ErrInvalidDay = errors.New("invalid day")

// DayWindow возвращает границы суток [start, end) для даты day.
// Если day нулевой — окно от from до конца следующих суток:
// «ближайшие слоты» без явной даты.
func DayWindow(day, from time.Time) (time.Time, time.Time, error) {
	if day.IsZero() {
		if from.IsZero() {
			return time.Time{}, time.Time{}, ErrInvalidDay
		}
		start := from
		end := dateOnly(from).AddDate(0, 0, 2)
		return start, end, nil
	}

	start := dateOnly(day)
	return start, start.AddDate(0, 0, 1), nil
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
