package urlcheck

import "net/url"

// IsValid reports whether raw parses as an absolute http or https URL.
// Anything else, including relative paths and other schemes, is rejected.
func IsValid(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
