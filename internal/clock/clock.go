package clock

import "time"

// Shanghai is China Standard Time (UTC+8). A fixed zone avoids depending on tzdata.
var Shanghai = time.FixedZone("CST", 8*3600)

// Market close in Shanghai time.
const (
	CloseHour   = 15
	CloseMinute = 0
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// Date truncates t to its calendar date in Shanghai.
func Date(t time.Time) time.Time {
	s := t.In(Shanghai)
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, Shanghai)
}

// SessionClosed reports whether the trading session of t's day has ended.
func SessionClosed(t time.Time) bool {
	s := t.In(Shanghai)
	hm := s.Hour()*60 + s.Minute()
	return hm >= CloseHour*60+CloseMinute
}

// ParseDate parses "20060102" or "2006-01-02" into a Shanghai calendar date.
func ParseDate(s string) (time.Time, error) {
	layout := "2006-01-02"
	if len(s) == 8 {
		layout = "20060102"
	}
	return time.ParseInLocation(layout, s, Shanghai)
}
