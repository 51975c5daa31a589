package enum

type EventName string

const (
	EventNewEmail        EventName = "new_email"
	EventInterestedEmail EventName = "interested_email"
	EventSpamDetected    EventName = "spam_detected"
)

func (t EventName) String() string {
	return string(t)
}

// EventsForCategory maps a classification label to the notification events
// raised for it. Every message raises new_email at minimum.
func EventsForCategory(category EmailCategory) []EventName {
	switch category {
	case CategoryInterested:
		return []EventName{EventInterestedEmail, EventNewEmail}
	case CategorySpam:
		return []EventName{EventSpamDetected, EventNewEmail}
	default:
		return []EventName{EventNewEmail}
	}
}
