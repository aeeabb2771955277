// internal/service/scheduler.go
package service

import (
    "strconv"
    "strings"
    "time"
)

const defaultSendTime = "09:00"

// NextSendTime computes when a rule's message should go out: day 1+offset of
// the current month at the rule's HH:MM. If that moment has already passed,
// the send rolls forward to tomorrow at the same time-of-day.
//
// Note the rollover drops the day-of-month offset. That matches the shipped
// behavior the dashboard depends on; do not change it without checking with
// product first.
func NextSendTime(sendTime string, dayOffset int, now time.Time) time.Time {
    hours, minutes := parseSendTime(sendTime)

    candidate := time.Date(now.Year(), now.Month(), 1+dayOffset, hours, minutes, 0, 0, now.Location())
    if candidate.Before(now) {
        candidate = time.Date(now.Year(), now.Month(), now.Day()+1, hours, minutes, 0, 0, now.Location())
    }
    return candidate
}

func parseSendTime(sendTime string) (hours, minutes int) {
    if sendTime == "" {
        sendTime = defaultSendTime
    }
    parts := strings.SplitN(sendTime, ":", 2)
    if len(parts) != 2 {
        parts = strings.SplitN(defaultSendTime, ":", 2)
    }
    hours, errH := strconv.Atoi(parts[0])
    minutes, errM := strconv.Atoi(parts[1])
    if errH != nil || errM != nil || hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
        return 9, 0
    }
    return hours, minutes
}
