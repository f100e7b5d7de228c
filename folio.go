// Package folio provides a fluent API for page-level PDF manipulation:
// merging, extraction, splitting, rotation, and reordering.
//
// Basic usage:
//
//	err := folio.Open("report.pdf").Pages("1-3,7").WriteFile("chapter.pdf")
//
// With more of the chain:
//
//	err := folio.Open("scan.pdf").
//	    Pages("2-9").
//	    Rotate(90).
//	    Recompact().
//	    Write(os.Stdout)
//
// Merging is a package-level operation:
//
//	err := folio.MergeFiles("combined.pdf", "a.pdf", "b.pdf")
//
// For advanced use cases, the lower-level reader, compose, and writer
// packages are also available.
package folio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/pagerange"
	"github.com/tsawler/folio/reader"
	"github.com/tsawler/folio/writer"
)

// Pipeline provides a fluent interface for transforming one source document.
// Each configuration method returns a new Pipeline instance, making chains
// safe to fork and reuse. The source is parsed lazily by the first terminal
// operation.
type Pipeline struct {
	// Source (exactly one is set)
	filename string
	data     []byte
	doc      *reader.Document

	// Configuration
	options PipelineOptions

	// Accumulated error (fail-fast)
	err error
}

// Open creates a Pipeline reading from the PDF file at the given path.
//
// Example:
//
//	err := folio.Open("document.pdf").Pages("1-3").WriteFile("out.pdf")
func Open(filename string) *Pipeline {
	return &Pipeline{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromBytes creates a Pipeline reading from an in-memory PDF.
func FromBytes(data []byte) *Pipeline {
	return &Pipeline{
		data:    data,
		options: defaultOptions(),
	}
}

// FromDocument creates a Pipeline over an already-parsed document. This is
// useful when several pipelines share one source and it should be parsed
// only once.
func FromDocument(doc *reader.Document) *Pipeline {
	return &Pipeline{
		doc:     doc,
		options: defaultOptions(),
	}
}

// clone creates a shallow copy of the Pipeline with a deep copy of options.
func (p *Pipeline) clone() *Pipeline {
	return &Pipeline{
		filename: p.filename,
		data:     p.data,
		doc:      p.doc,
		options:  p.options.clone(),
		err:      p.err,
	}
}

// Pages restricts the output to the pages selected by a range expression
// such as "1-3,7". Selection happens before rotation and reordering.
func (p *Pipeline) Pages(expression string) *Pipeline {
	newP := p.clone()
	newP.options.expression = expression
	return newP
}

// Rotate adds delta degrees (a multiple of 90, possibly negative) to the
// rotation of every output page.
func (p *Pipeline) Rotate(delta int) *Pipeline {
	newP := p.clone()
	newP.options.rotateDelta = delta
	newP.options.hasRotate = true
	return newP
}

// Reorder permutes the output pages. The permutation is 1-based over the
// selected pages and must mention each exactly once.
func (p *Pipeline) Reorder(permutation ...int) *Pipeline {
	newP := p.clone()
	newP.options.permutation = make([]int, len(permutation))
	copy(newP.options.permutation, permutation)
	return newP
}

// Recompact enables garbage collection and stream compression when the
// output is serialized.
func (p *Pipeline) Recompact() *Pipeline {
	newP := p.clone()
	newP.options.recompact = true
	return newP
}

// ensureDoc parses the source if not already parsed.
func (p *Pipeline) ensureDoc() error {
	if p.err != nil {
		return p.err
	}
	if p.doc != nil {
		return nil
	}

	var err error
	switch {
	case p.filename != "":
		p.doc, err = reader.Open(p.filename)
	case p.data != nil:
		p.doc, err = reader.FromBytes(p.data)
	default:
		err = fmt.Errorf("no source specified")
	}
	if err != nil {
		p.err = err
	}
	return err
}

// PageCount returns the source document's page count.
func (p *Pipeline) PageCount() (int, error) {
	if err := p.ensureDoc(); err != nil {
		return 0, err
	}
	return p.doc.PageCount(), nil
}

// Info returns the source document's metadata.
func (p *Pipeline) Info() (reader.Info, error) {
	if err := p.ensureDoc(); err != nil {
		return reader.Info{}, err
	}
	return p.doc.Info()
}

// Compose applies the configured selection, reordering, and rotation and
// returns the resulting document without serializing it.
func (p *Pipeline) Compose() (*compose.Document, error) {
	if err := p.ensureDoc(); err != nil {
		return nil, err
	}

	indices := pagerange.All(p.doc.PageCount())
	if p.options.expression != "" {
		var err error
		indices, err = pagerange.Resolve(p.options.expression, p.doc.PageCount())
		if err != nil {
			return nil, err
		}
	}

	if p.options.permutation != nil {
		reordered, err := permute(indices, p.options.permutation)
		if err != nil {
			return nil, err
		}
		indices = reordered
	}

	out, err := compose.ExtractPages(p.doc, indices)
	if err != nil {
		return nil, err
	}

	if p.options.hasRotate {
		if p.options.rotateDelta%90 != 0 {
			return nil, fmt.Errorf("%w: got %d", compose.ErrInvalidRotation, p.options.rotateDelta)
		}
		for i, n := range indices {
			page, err := p.doc.Page(n)
			if err != nil {
				return nil, err
			}
			rotated := ((page.Rotate()+p.options.rotateDelta)%360 + 360) % 360
			if err := out.SetRotation(i+1, rotated); err != nil {
				return nil, err
			}
		}
		out.Finalize()
	}

	return out, nil
}

// Write runs the pipeline and serializes the result to w.
func (p *Pipeline) Write(w io.Writer) error {
	out, err := p.Compose()
	if err != nil {
		return err
	}
	return p.writerFor().Write(out, w)
}

// WriteFile runs the pipeline and serializes the result to a file.
func (p *Pipeline) WriteFile(filename string) error {
	out, err := p.Compose()
	if err != nil {
		return err
	}
	return p.writerFor().WriteFile(out, filename)
}

// Bytes runs the pipeline and returns the serialized result.
func (p *Pipeline) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Split runs the selection, splits the result into chunks of at most n
// consecutive pages, and returns one serialized document per chunk.
func (p *Pipeline) Split(n int) ([][]byte, error) {
	out, err := p.Compose()
	if err != nil {
		return nil, err
	}

	// Round-trip through the serializer so splitting operates on the
	// pipeline's output, not the raw source
	var buf bytes.Buffer
	if err := writer.Write(out, &buf); err != nil {
		return nil, err
	}

	doc, err := reader.FromBytes(buf.Bytes())
	if err != nil {
		return nil, err
	}

	parts, err := compose.SplitEvery(doc, n)
	if err != nil {
		return nil, err
	}

	results := make([][]byte, len(parts))
	for i, part := range parts {
		var partBuf bytes.Buffer
		if err := p.writerFor().Write(part, &partBuf); err != nil {
			return nil, err
		}
		results[i] = partBuf.Bytes()
	}

	return results, nil
}

func (p *Pipeline) writerFor() *writer.Writer {
	if p.options.recompact {
		return writer.New(writer.WithRecompact())
	}
	return writer.New()
}

// Merge concatenates the given PDF files, in order, and writes the result
// to w.
func Merge(w io.Writer, sources ...string) error {
	docs := make([]*reader.Document, len(sources))
	for i, name := range sources {
		doc, err := reader.Open(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		docs[i] = doc
	}

	merged, err := compose.Merge(docs...)
	if err != nil {
		return err
	}

	return writer.Write(merged, w)
}

// MergeFiles concatenates the given PDF files into an output file.
func MergeFiles(output string, sources ...string) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := Merge(f, sources...); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := folio.Must(folio.Open("document.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// permute maps a 1-based permutation over the selected index list.
func permute(indices, permutation []int) ([]int, error) {
	if len(permutation) != len(indices) {
		return nil, fmt.Errorf("%w: %d indices for %d pages", compose.ErrInvalidPermutation, len(permutation), len(indices))
	}

	seen := make(map[int]bool, len(permutation))
	result := make([]int, len(permutation))
	for i, n := range permutation {
		if n < 1 || n > len(indices) {
			return nil, fmt.Errorf("%w: index %d out of range [1, %d]", compose.ErrInvalidPermutation, n, len(indices))
		}
		if seen[n] {
			return nil, fmt.Errorf("%w: index %d repeated", compose.ErrInvalidPermutation, n)
		}
		seen[n] = true
		result[i] = indices[n-1]
	}

	return result, nil
}
