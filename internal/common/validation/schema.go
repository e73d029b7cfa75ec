package validation

import (
	"regexp"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)

	// Activity ids are kebab-case, matching the BPMN task types
	// ("calculate-tidescore", "persist-score-record").
	activityNameRegex = regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)
)

// ValidateEmail checks email format.
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePhone checks phone number format (international format preferred).
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// ValidateActivityNaming checks that an activity id follows the kebab-case
// naming convention used across the registry and the process models.
func ValidateActivityNaming(activityID string) bool {
	return activityNameRegex.MatchString(activityID)
}
