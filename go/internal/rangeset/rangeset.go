package rangeset

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// MaxValue is the largest team number a descriptor may name.
const MaxValue = 99999

var (
	singlePattern = regexp.MustCompile(`^[0-9]+$`)
	rangePattern  = regexp.MustCompile(`^([0-9]+)[ \t]*-[ \t]*([0-9]+)$`)
)

// MalformedRangeError is returned when a roster descriptor cannot be parsed.
type MalformedRangeError struct {
	Descriptor string
	Entry      string // empty when the whole descriptor is blank
	Reason     string
}

func (e *MalformedRangeError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("team list %q is malformed: %s", e.Descriptor, e.Reason)
	}
	return fmt.Sprintf("team list entry %q is malformed: %s", e.Entry, e.Reason)
}

// Set is a set of team numbers.
type Set map[int]struct{}

// Of builds a set from the given values.
func Of(values ...int) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether n is in the set.
func (s Set) Contains(n int) bool {
	_, ok := s[n]
	return ok
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []int {
	out := make([]int, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// Parse converts a descriptor such as "3,6,9-12" into a set of integers.
// Whitespace around numbers, commas and hyphens is ignored. A range whose
// low bound exceeds its high bound is rejected, as is any number above MaxValue.
func Parse(descriptor string) (Set, error) {
	if strings.TrimSpace(descriptor) == "" {
		return nil, &MalformedRangeError{Descriptor: descriptor, Reason: "team list is empty"}
	}

	result := make(Set)
	for _, raw := range strings.Split(descriptor, ",") {
		entry := strings.TrimSpace(raw)
		if err := addEntry(result, descriptor, entry); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func addEntry(set Set, descriptor, entry string) error {
	if singlePattern.MatchString(entry) {
		n, err := strconv.Atoi(entry)
		if err != nil {
			return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: err.Error()}
		}
		if n > MaxValue {
			return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: fmt.Sprintf("exceeds %d", MaxValue)}
		}
		set[n] = struct{}{}
		return nil
	}

	m := rangePattern.FindStringSubmatch(entry)
	if m == nil {
		if entry == "" {
			return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: "empty entry"}
		}
		return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: "expected N or LOW-HIGH"}
	}
	low, err := strconv.Atoi(m[1])
	if err != nil {
		return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: err.Error()}
	}
	high, err := strconv.Atoi(m[2])
	if err != nil {
		return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: err.Error()}
	}
	if low > high {
		return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: "low bound exceeds high bound"}
	}
	if high > MaxValue {
		return &MalformedRangeError{Descriptor: descriptor, Entry: entry, Reason: fmt.Sprintf("high bound exceeds %d", MaxValue)}
	}
	for n := low; n <= high; n++ {
		set[n] = struct{}{}
	}
	return nil
}
