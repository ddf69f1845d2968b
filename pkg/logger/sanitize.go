package logger

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameter names whose presence redacts the whole query string
var sensitiveParams = []string{
	"password", "token", "secret", "auth", "csrf", "session", "sid",
}

// SanitizedEmail masks an email address for logging (e.g., "u***@*******.com")
func SanitizedEmail(email string) string {
	username, domain, found := strings.Cut(email, "@")
	if !found || username == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// ShortID returns enough of a session id to correlate log lines without
// writing the full identifier
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// SanitizeQueryString reports whether the query string names a sensitive
// parameter and should be redacted entirely
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		// Unparseable queries are redacted rather than logged verbatim
		return true
	}

	for key := range values {
		key = strings.ToLower(key)
		for _, param := range sensitiveParams {
			if strings.Contains(key, param) {
				return true
			}
		}
	}
	return false
}
