package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange reports an expression that cannot be resolved at all:
	// blank input or a non-positive page count.
	ErrInvalidRange = errors.New("invalid page range expression")

	// ErrEmptyRange reports an expression whose tokens were all dropped,
	// leaving no pages selected.
	ErrEmptyRange = errors.New("page range selects no pages")
)

// Resolve parses a range expression against a document with pageCount pages
// and returns the selected 1-based page indices, deduplicated and sorted
// ascending. Malformed or out-of-bounds tokens are dropped silently; if
// nothing survives, Resolve fails with ErrEmptyRange.
//
// Resolve is a pure function: no side effects, and resolving its own
// stringified output yields the same indices.
func Resolve(expression string, pageCount int) ([]int, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("%w: page count %d", ErrInvalidRange, pageCount)
	}
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidRange)
	}

	selected := make(map[int]bool)

	for _, token := range strings.Split(expression, ",") {
		start, end, ok := parseToken(token)
		if !ok {
			continue // malformed token - dropped
		}
		if start < 1 || end > pageCount {
			continue // out of bounds - dropped
		}
		for n := start; n <= end; n++ {
			selected[n] = true
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: %q against %d pages", ErrEmptyRange, expression, pageCount)
	}

	result := make([]int, 0, len(selected))
	for n := range selected {
		result = append(result, n)
	}
	sort.Ints(result)

	return result, nil
}

// Validate checks an expression strictly: every token must be well-formed
// and within [1, pageCount]. It returns nil if Resolve would keep every
// token, and otherwise an error naming the first offending token.
func Validate(expression string, pageCount int) error {
	if pageCount < 1 {
		return fmt.Errorf("%w: page count %d", ErrInvalidRange, pageCount)
	}
	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidRange)
	}

	for _, token := range strings.Split(expression, ",") {
		start, end, ok := parseToken(token)
		if !ok {
			return fmt.Errorf("%w: malformed token %q", ErrInvalidRange, strings.TrimSpace(token))
		}
		if start < 1 || end > pageCount {
			return fmt.Errorf("%w: token %q out of bounds [1, %d]", ErrInvalidRange, strings.TrimSpace(token), pageCount)
		}
	}

	return nil
}

// Stringify renders a sorted index list back to range-expression form,
// collapsing consecutive runs ("1-3,5"). The output round-trips through
// Resolve.
func Stringify(indices []int) string {
	if len(indices) == 0 {
		return ""
	}

	sorted := make([]int, len(indices))
	copy(sorted, indices)
	sort.Ints(sorted)

	var b strings.Builder
	runStart, prev := sorted[0], sorted[0]

	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		if runStart == prev {
			b.WriteString(strconv.Itoa(runStart))
		} else {
			fmt.Fprintf(&b, "%d-%d", runStart, prev)
		}
	}

	for _, n := range sorted[1:] {
		if n == prev || n == prev+1 {
			if n == prev+1 {
				prev = n
			}
			continue
		}
		flush()
		runStart, prev = n, n
	}
	flush()

	return b.String()
}

// All returns the full selection 1..pageCount.
func All(pageCount int) []int {
	result := make([]int, pageCount)
	for i := range result {
		result[i] = i + 1
	}
	return result
}

// parseToken parses a single token ("5" or "2-7") into its inclusive bounds.
// Reversed ranges and non-numeric input report !ok.
func parseToken(token string) (start, end int, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, 0, false
	}

	if dash := strings.Index(token, "-"); dash >= 0 {
		startStr := strings.TrimSpace(token[:dash])
		endStr := strings.TrimSpace(token[dash+1:])

		start, err := strconv.Atoi(startStr)
		if err != nil {
			return 0, 0, false
		}
		end, err := strconv.Atoi(endStr)
		if err != nil {
			return 0, 0, false
		}
		if end < start {
			return 0, 0, false
		}
		return start, end, true
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, 0, false
	}
	return n, n, true
}
