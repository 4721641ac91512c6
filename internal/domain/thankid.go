package domain

import (
	"errors"
	"strconv"
	"strings"
)

// Kind is the kind of thanked object.
type Kind string

const (
	KindRevision Kind = "revision"
	KindLog      Kind = "log"

	// kindRevisionLegacy is accepted on read as a synonym of KindRevision.
	kindRevisionLegacy = "rev"
)

// ErrBadThankedID is returned when a serialized identifier cannot be parsed.
var ErrBadThankedID = errors.New("malformed thanked id")

// ParseKind normalizes a kind name, accepting "rev" for revisions.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindRevision), kindRevisionLegacy:
		return KindRevision, true
	case string(KindLog):
		return KindLog, true
	}
	return "", false
}

// ThankedID identifies a thanked revision or log entry.
type ThankedID struct {
	Kind Kind
	ID   int64
}

// RevisionID returns the identifier of revision id.
func RevisionID(id int64) ThankedID { return ThankedID{Kind: KindRevision, ID: id} }

// LogID returns the identifier of log entry id.
func LogID(id int64) ThankedID { return ThankedID{Kind: KindLog, ID: id} }

// Valid reports whether the kind is known and the id positive.
func (t ThankedID) Valid() bool {
	return (t.Kind == KindRevision || t.Kind == KindLog) && t.ID > 0
}

// String returns the canonical "<kind>-<id>" form.
func (t ThankedID) String() string {
	return string(t.Kind) + "-" + strconv.FormatInt(t.ID, 10)
}

// ParseThankedID parses "<kind>-<id>". Legacy "rev-<id>" entries come back
// as revisions so that both spellings compare equal.
func ParseThankedID(s string) (ThankedID, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return ThankedID{}, ErrBadThankedID
	}
	kind, ok := ParseKind(s[:i])
	if !ok {
		return ThankedID{}, ErrBadThankedID
	}
	id, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return ThankedID{}, ErrBadThankedID
	}
	return ThankedID{Kind: kind, ID: id}, nil
}

// CanonicalThankedID rewrites s to its canonical form. Unparseable input is
// returned unchanged so that foreign cache entries survive a round trip.
func CanonicalThankedID(s string) string {
	t, err := ParseThankedID(s)
	if err != nil {
		return s
	}
	return t.String()
}
