package paylink

import "regexp"

// Client classifies the visitor's device.
type Client int

const (
	Desktop Client = iota
	Mobile
)

// String returns "mobile" or "desktop".
func (c Client) String() string {
	if c == Mobile {
		return "mobile"
	}
	return "desktop"
}

var mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod`)

// Classify reports whether userAgent belongs to a mobile device that can
// open the payment app through its deep link.
func Classify(userAgent string) Client {
	if mobileUA.MatchString(userAgent) {
		return Mobile
	}
	return Desktop
}
