package hrtime

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/benz9527/xdispatch/lib/kv"
)

type TimeZoneOffset int32

const (
	hourInSeconds                       = 3600
	TzUtc0Offset         TimeZoneOffset = 0
	TzUtc8Offset         TimeZoneOffset = 8 * hourInSeconds
	TzAsiaShanghaiOffset TimeZoneOffset = TzUtc8Offset
)

var (
	defaultTimezoneOffset int32
	appStartTime          time.Time
	tzLocations           = kv.NewThreadSafeMap[TimeZoneOffset, *time.Location]()
)

func DefaultTimezoneOffset() int {
	return int(atomic.LoadInt32(&defaultTimezoneOffset))
}

func SetDefaultTimezoneOffset(tz TimeZoneOffset) {
	atomic.StoreInt32(&defaultTimezoneOffset, int32(tz))
}

func loadTZLocation(offset TimeZoneOffset) *time.Location {
	if offset == TzUtc0Offset {
		return time.UTC
	}
	if loc, ok := tzLocations.Get(offset); ok {
		return loc
	}
	loc := time.FixedZone("UTC"+strconv.FormatFloat(float64(offset)/hourInSeconds, 'f', -1, 64), int(offset))
	_ = tzLocations.AddOrUpdate(offset, loc)
	return loc
}
