package domain

// UpcomingEventsCacheKey caches the upcoming events listing.
const UpcomingEventsCacheKey = "events:upcoming"

func EventCacheKey(eventID string) string {
	return "event:" + eventID
}

func EventStatsCacheKey(eventID string) string {
	return "event:stats:" + eventID
}

func EventAvailabilityCacheKey(eventID string) string {
	return "event:availability:" + eventID
}

func ParticipantCacheKey(participantID string) string {
	return "participant:" + participantID
}
