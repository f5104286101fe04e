package dispatch

import (
	"errors"
	"strings"
)

var (
	ErrUnknownRoute      = errors.New("[dispatch] unknown route")
	ErrDispatcherStopped = errors.New("[dispatch] dispatcher stopped")
)

const (
	AckRingPrefix        = "Message published: "
	AckQueuePrefix       = "Message published to queue: "
	AckRingFailedPrefix  = "Message publish failed: "
	AckQueueFailedPrefix = "Message publish to queue failed: "
)

// Event is one message on its way to the consumer.
// Ring events live in the pre-allocated slots and are overwritten in
// place, the producer owns the slot between claim and publish, the
// consumer owns it from then until it advances its cursor.
// Queue events are allocated per message and dropped once processed.
type Event struct {
	Payload          string
	EnqueuedAtMillis int64
}

type Route uint8

const (
	RouteRing Route = iota
	RouteQueue
	_routeMax
)

func (r Route) String() string {
	switch r {
	case RouteRing:
		return "ring"
	case RouteQueue:
		return "queue"
	}
	return "unknown"
}

func ParseRoute(route string) (Route, error) {
	switch strings.ToLower(strings.TrimSpace(route)) {
	case "ring", "disruptor", "":
		return RouteRing, nil
	case "queue":
		return RouteQueue, nil
	}
	return _routeMax, ErrUnknownRoute
}
