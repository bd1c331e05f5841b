package service

import "time"

// krxSession models the Korea Exchange regular session: 09:00 to 15:30 KST,
// weekdays. Exchange holidays are not modeled; a closed venue simply rejects
// orders.
type krxSession struct{}

// NewKRXSession returns the regular-hours market session.
func NewKRXSession() MarketSession {
	return krxSession{}
}

func (krxSession) IsOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60 && minutes <= 15*60+30
}
