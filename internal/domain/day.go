package domain

import "time"

// Daily gates are anchored to Korean Standard Time, the product's home
// market, regardless of where a request or server happens to run. KST has no
// daylight saving, so a fixed offset is exact and avoids a tzdata dependency.
var ReferenceZone = time.FixedZone("KST", 9*60*60)

// DayLayout is the calendar-day format stored in daily usage markers.
const DayLayout = "2006-01-02"

// ReferenceDay converts an instant to the reference-timezone calendar day.
// A timestamp late in the UTC evening already belongs to the next KST day;
// classification always follows the converted day, never the UTC day.
func ReferenceDay(t time.Time) string {
	return t.In(ReferenceZone).Format(DayLayout)
}
