package asset

import "time"

const (
	// ticks are 100ns intervals since 0001-01-01T00:00:00Z.
	ticksPerSecond = int64(time.Second / 100)
	unixEpochTicks = int64(621355968000000000)
	tickPrecision  = 100 * time.Nanosecond
)

func toTicks(t time.Time) int64 {
	t = t.UTC()
	return t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100 + unixEpochTicks
}

func fromTicks(ticks int64) time.Time {
	rel := ticks - unixEpochTicks
	sec := rel / ticksPerSecond
	rem := rel % ticksPerSecond
	return time.Unix(sec, rem*100).UTC()
}

// normalizeTime brings t to the precision the envelope can hold.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(tickPrecision)
}
