// Package bvid models the bilibili video identifier (BV id) and its
// extraction from free-form chat text.
package bvid

import (
	"errors"
	"regexp"
	"sync"
)

// ErrNotFound reports that the scanned text contains no BV id. It is a
// control outcome, not a hard failure; callers typically skip the message.
var ErrNotFound = errors.New("no bvid in text")

// pattern matches a BV id anywhere in a string, case-insensitively.
// The body is exactly ten alphanumerics after the two-letter prefix.
var pattern = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`(?i)bv[0-9A-Za-z]{10}`)
})

// Bvid is a canonical video identifier: uppercase "BV" prefix followed by
// the matched body with its original casing preserved. Only Parse
// constructs values, so a Bvid is valid by construction.
type Bvid string

func (b Bvid) String() string { return string(b) }

// Parse scans candidate for the first BV id occurrence and returns it in
// canonical form. Returns ErrNotFound when no occurrence exists.
func Parse(candidate string) (Bvid, error) {
	m := pattern().FindString(candidate)
	if m == "" {
		return "", ErrNotFound
	}
	return Bvid("BV" + m[2:]), nil
}
