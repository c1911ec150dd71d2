package ingest

import "sync"

// seenSet tracks links claimed during the current run. Feeds frequently
// syndicate the same story, so two feed goroutines can reach the same link
// in the same cycle before either row exists in the database.
type seenSet struct {
	links sync.Map
}

func newSeenSet() *seenSet {
	return &seenSet{}
}

// Claim marks the link as taken and reports whether this caller won. Exactly
// one caller per link gets true for the lifetime of the set.
func (s *seenSet) Claim(link string) bool {
	_, loaded := s.links.LoadOrStore(link, struct{}{})
	return !loaded
}
