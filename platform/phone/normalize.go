// Package phone normalizes lead phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers entered without a country code.
const DefaultRegion = "US"

// Parse returns the E.164 form of input and whether it is a valid number.
func Parse(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if region == "" {
		region = DefaultRegion
	}
	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}

// NormalizeE164 keeps unparseable input as typed so nothing the lead entered
// is lost.
func NormalizeE164(input string) string {
	n, _ := Parse(input, DefaultRegion)
	return n
}
