package render

import (
	"fmt"
	"time"
)

// NoDate is shown for missing or unparseable dates.
const NoDate = "—"

// Date formats t as "January 2, 2006".
func Date(t time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	return t.Local().Format("January 2, 2006")
}

// DateTime formats t as "Jan 2, 2006 15:04".
func DateTime(t time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}

// TimeAgo renders the age of t in whole minutes, hours or days: "3m ago",
// "2h ago", "4d ago". Times in the future count as "0m ago".
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return NoDate
	}
	minutes := int(now.Sub(t) / time.Minute)
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm ago", max(minutes, 0))
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	}
}
