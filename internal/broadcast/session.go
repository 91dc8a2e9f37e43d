package broadcast

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidSession is returned for slugs or session names that cannot key a channel.
var ErrInvalidSession = errors.New("invalid session")

var sessionPartRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SessionID derives the channel key from a presentation slug and an optional
// session query parameter. Different presentations never share a key.
func SessionID(slug, session string) (string, error) {
	slug = strings.TrimSpace(slug)
	session = strings.TrimSpace(session)

	if !sessionPartRegex.MatchString(slug) {
		return "", ErrInvalidSession
	}
	if session == "" {
		return slug, nil
	}
	if !sessionPartRegex.MatchString(session) {
		return "", ErrInvalidSession
	}
	return slug + "/" + session, nil
}

// ValidSlug reports whether s can be used as a presentation slug.
func ValidSlug(s string) bool {
	return sessionPartRegex.MatchString(s)
}
