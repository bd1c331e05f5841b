package utils

import (
	"log"
	"time"
)

// TimeNowKST returns the current time in the exchange's local zone (Asia/Seoul).
func TimeNowKST() time.Time {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return time.Now().In(loc)
}

// PrettyDate formats a time for human-facing alert messages.
func PrettyDate(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04:05")
}

// SessionDay returns the trading-session day (the KST calendar date) for t.
// Daily counters and loss baselines reset when this value changes.
func SessionDay(t time.Time) string {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		log.Fatal("Failed to load location", err)
	}
	return t.In(loc).Format("2006-01-02")
}
