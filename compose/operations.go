package compose

import (
	"fmt"

	"github.com/tsawler/folio/pagerange"
	"github.com/tsawler/folio/reader"
)

// Merge concatenates the pages of two or more source documents, in argument
// order. Metadata is carried over from the first source. Fails with
// ErrInsufficientInput for fewer than two sources and ErrEmptyDocument if
// any source contributes no pages.
func Merge(sources ...*reader.Document) (*Document, error) {
	if len(sources) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientInput, len(sources))
	}
	for i, src := range sources {
		if src.PageCount() == 0 {
			return nil, fmt.Errorf("%w: source %d", ErrEmptyDocument, i+1)
		}
	}

	out := NewDocument()
	if err := out.CarryInfo(sources[0]); err != nil {
		return nil, err
	}

	for i, src := range sources {
		if err := out.AppendPages(src, pagerange.All(src.PageCount())); err != nil {
			return nil, fmt.Errorf("source %d: %w", i+1, err)
		}
	}

	out.Finalize()
	return out, nil
}

// ExtractRange builds a new document from the pages of src selected by a
// range expression, in ascending page order.
func ExtractRange(src *reader.Document, expression string) (*Document, error) {
	indices, err := pagerange.Resolve(expression, src.PageCount())
	if err != nil {
		return nil, err
	}
	return ExtractPages(src, indices)
}

// ExtractPages builds a new document from the pages of src at the given
// 1-based indices, in the order given.
func ExtractPages(src *reader.Document, indices []int) (*Document, error) {
	if src.PageCount() == 0 {
		return nil, ErrEmptyDocument
	}

	out := NewDocument()
	if err := out.CarryInfo(src); err != nil {
		return nil, err
	}
	if err := out.AppendPages(src, indices); err != nil {
		return nil, err
	}

	out.Finalize()
	return out, nil
}

// SplitIndividual splits src into one single-page document per page.
func SplitIndividual(src *reader.Document) ([]*Document, error) {
	return SplitEvery(src, 1)
}

// SplitEvery splits src into documents of at most n consecutive pages each.
// The last part may be shorter.
func SplitEvery(src *reader.Document, n int) ([]*Document, error) {
	if n < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", n)
	}
	if src.PageCount() == 0 {
		return nil, ErrEmptyDocument
	}

	count := src.PageCount()
	parts := make([]*Document, 0, (count+n-1)/n)

	for start := 1; start <= count; start += n {
		end := start + n - 1
		if end > count {
			end = count
		}

		indices := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			indices = append(indices, i)
		}

		part, err := ExtractPages(src, indices)
		if err != nil {
			return nil, fmt.Errorf("pages %d-%d: %w", start, end, err)
		}
		parts = append(parts, part)
	}

	return parts, nil
}

// Rotate copies src in full and adds delta degrees to the rotation of each
// page selected by the range expression. Delta must be a multiple of 90 and
// may be negative; the result is normalized into {0, 90, 180, 270}.
func Rotate(src *reader.Document, expression string, delta int) (*Document, error) {
	if delta%90 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRotation, delta)
	}

	indices, err := pagerange.Resolve(expression, src.PageCount())
	if err != nil {
		return nil, err
	}

	out, err := Clone(src)
	if err != nil {
		return nil, err
	}

	for _, n := range indices {
		page, err := src.Page(n)
		if err != nil {
			return nil, err
		}

		// Euclidean modulo keeps negative deltas in range
		rotated := ((page.Rotate()+delta)%360 + 360) % 360
		if err := out.SetRotation(n, rotated); err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
	}

	out.Finalize()
	return out, nil
}

// Reorder builds a new document whose page i is src's page permutation[i-1].
// The permutation must contain every index 1..PageCount exactly once; no
// output is built otherwise.
func Reorder(src *reader.Document, permutation []int) (*Document, error) {
	count := src.PageCount()
	if count == 0 {
		return nil, ErrEmptyDocument
	}

	if len(permutation) != count {
		return nil, fmt.Errorf("%w: %d indices for %d pages", ErrInvalidPermutation, len(permutation), count)
	}
	seen := make(map[int]bool, count)
	for _, n := range permutation {
		if n < 1 || n > count {
			return nil, fmt.Errorf("%w: index %d out of range [1, %d]", ErrInvalidPermutation, n, count)
		}
		if seen[n] {
			return nil, fmt.Errorf("%w: index %d repeated", ErrInvalidPermutation, n)
		}
		seen[n] = true
	}

	return ExtractPages(src, permutation)
}

// Clone copies every page of src into a fresh document.
func Clone(src *reader.Document) (*Document, error) {
	if src.PageCount() == 0 {
		return nil, ErrEmptyDocument
	}
	return ExtractPages(src, pagerange.All(src.PageCount()))
}
