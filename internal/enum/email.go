package enum

type EmailCategory string

const (
	CategoryInterested    EmailCategory = "interested"
	CategoryNotInterested EmailCategory = "not_interested"
	CategoryMeetingBooked EmailCategory = "meeting_booked"
	CategorySpam          EmailCategory = "spam"
	CategoryOutOfOffice   EmailCategory = "out_of_office"
)

func (t EmailCategory) String() string {
	return string(t)
}

// EmailCategories lists every label the classifier may return.
var EmailCategories = []EmailCategory{
	CategoryInterested,
	CategoryNotInterested,
	CategoryMeetingBooked,
	CategorySpam,
	CategoryOutOfOffice,
}

// DefaultEmailCategory is applied when classification is unavailable or
// returns an unknown label.
const DefaultEmailCategory = CategoryNotInterested

func ParseEmailCategory(s string) (EmailCategory, bool) {
	for _, c := range EmailCategories {
		if c.String() == s {
			return c, true
		}
	}
	return DefaultEmailCategory, false
}

type EmailSecurity string

const (
	EmailSecurityNone EmailSecurity = "none"
	EmailSecuritySSL  EmailSecurity = "ssl"
	EmailSecurityTLS  EmailSecurity = "tls"
)

func (t EmailSecurity) String() string {
	return string(t)
}
