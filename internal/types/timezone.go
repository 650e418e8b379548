package types

import (
	"strings"
	"time"
)

// DefaultBillingTimezone anchors the daily run when no timezone is
// configured. Day boundaries follow this zone, not UTC.
const DefaultBillingTimezone = "Asia/Seoul"

// timezoneAbbreviationMap maps common three-letter timezone abbreviations to
// IANA identifiers so configs may use either form.
var timezoneAbbreviationMap = map[string]string{
	"KST":  "Asia/Seoul",
	"JST":  "Asia/Tokyo",
	"IST":  "Asia/Kolkata",
	"CCT":  "Asia/Shanghai",
	"EST":  "America/New_York",
	"CST":  "America/Chicago",
	"PST":  "America/Los_Angeles",
	"GMT":  "Europe/London",
	"CET":  "Europe/Berlin",
	"AEST": "Australia/Sydney",
}

// ResolveTimezone converts a timezone abbreviation to an IANA identifier or
// returns the input unchanged when it is already one.
func ResolveTimezone(timezone string) string {
	if ianaName, exists := timezoneAbbreviationMap[strings.ToUpper(timezone)]; exists {
		return ianaName
	}
	return timezone
}

// LoadBillingLocation resolves and loads the billing timezone, falling back
// to the default when the input is empty.
func LoadBillingLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		timezone = DefaultBillingTimezone
	}
	return time.LoadLocation(ResolveTimezone(timezone))
}
