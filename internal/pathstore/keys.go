package pathstore

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	nonSlug    = regexp.MustCompile(`[^a-z0-9-]`)
	dashRepeat = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a path-safe slug of at most 50 bytes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	s = dashRepeat.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// Keys builds the key layout for one user:
//
//	memory/users/{user}/documents/{doc}/meta
//	memory/users/{user}/documents/{doc}/cells/{cell}
//	memory/users/{user}/documents/{doc}/sections/{section}
//	memory/users/{user}/documents/by_hash/{hash}/{doc}
type Keys struct {
	UserID string
}

func (k Keys) Documents() string {
	return fmt.Sprintf("memory/users/%s/documents", k.UserID)
}

func (k Keys) Document(docID string) string {
	return k.Documents() + "/" + docID
}

func (k Keys) Meta(docID string) string {
	return k.Document(docID) + "/meta"
}

func (k Keys) Cell(docID, cellID string) string {
	return k.Document(docID) + "/cells/" + cellID
}

func (k Keys) Section(docID, sectionID string) string {
	return k.Document(docID) + "/sections/" + sectionID
}

func (k Keys) HashPrefix(hash string) string {
	return k.Documents() + "/by_hash/" + hash
}

func (k Keys) HashIndex(hash, docID string) string {
	return k.HashPrefix(hash) + "/" + docID
}

// LastSegment returns the final component of a key as pathstore reports it.
// Scan results may use either "/" or "." as the separator.
func LastSegment(key string) string {
	if i := strings.LastIndexAny(key, "/."); i >= 0 {
		return key[i+1:]
	}
	return key
}
