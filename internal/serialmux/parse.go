package serialmux

import "github.com/Tahakcygt/HSS-ka/internal/wire"

const (
	EventTypeLocalRequest = "local_request"
	EventTypeGeoRequest   = "geo_request"
	EventTypeUnknown      = "unknown"
)

// ClassifyPayload returns the event type of one inbound line. Telemetry and
// other chatter on the link classify as unknown.
func ClassifyPayload(payload string) string {
	switch wire.Classify([]byte(payload)) {
	case wire.FormatLocal:
		return EventTypeLocalRequest
	case wire.FormatGeo:
		return EventTypeGeoRequest
	default:
		return EventTypeUnknown
	}
}
