package types

import (
	"encoding/json"
	"sort"
)

// TagSet is an unordered collection of unique tag strings. It marshals to a
// sorted JSON array so the wire form is stable regardless of insertion order.
type TagSet map[string]struct{}

// NewTagSet builds a TagSet from a list of tags, discarding duplicates.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports whether the tag is a member of the set.
func (s TagSet) Contains(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Intersects reports whether the two sets share any tag.
func (s TagSet) Intersects(other TagSet) bool {
	// Iterate the smaller side.
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for t := range small {
		if _, ok := large[t]; ok {
			return true
		}
	}
	return false
}

// Slice returns the tags as a sorted slice.
func (s TagSet) Slice() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array of strings.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of strings, deduplicating members.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}
