// Package slug derives URL-safe slugs from category labels.
package slug

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Make turns a category label into a URL-safe slug: lowercase, "&" becomes
// "and", any run of non-alphanumeric characters collapses to a single
// hyphen, and edge hyphens are trimmed. Applying Make to an already-clean
// slug returns it unchanged.
//
//	Make("Science & Technology") == "science-and-technology"
//	Make("sports")               == "sports"
func Make(label string) string {
	s := strings.ToLower(label)
	s = strings.ReplaceAll(s, "&", "and")
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
