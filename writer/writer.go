package writer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/core"
)

// SerializationError reports a document that cannot be rendered to bytes,
// typically an object slot that was never filled in.
type SerializationError struct {
	Object int
	Reason string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot serialize object %d: %s", e.Object, e.Reason)
}

// Option configures a Writer.
type Option func(*Writer)

// WithRecompact enables garbage collection of unreachable objects,
// contiguous renumbering, and flate compression of unfiltered streams.
func WithRecompact() Option {
	return func(w *Writer) {
		w.recompact = true
	}
}

// Writer renders composed documents to PDF files.
type Writer struct {
	recompact bool
}

// New creates a Writer with the given options.
func New(opts ...Option) *Writer {
	w := &Writer{}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write finalizes doc and renders it to out as a complete PDF file.
func (w *Writer) Write(doc *compose.Document, out io.Writer) error {
	doc.Finalize()

	objects := doc.Objects()
	root := doc.Root()
	info := doc.InfoRef()

	// order lists the source object numbers to emit; remap translates a
	// source number to its output number.
	var order []int
	remap := func(n int) int { return n }

	if w.recompact {
		reachable, err := reachableFrom(objects, root, info)
		if err != nil {
			return err
		}
		order = reachable

		table := make(map[int]int, len(order))
		for i, n := range order {
			table[n] = i + 1
		}
		remap = func(n int) int { return table[n] }
	} else {
		order = make([]int, len(objects))
		for i := range objects {
			order[i] = i + 1
		}
	}

	bw := bufio.NewWriter(out)
	var written int64
	count := func(n int, err error) error {
		written += int64(n)
		return err
	}

	if err := count(fmt.Fprintf(bw, "%%PDF-1.7\n%%\xe2\xe3\xcf\xd3\n")); err != nil {
		return err
	}

	offsets := make([]int64, len(order))
	for i, num := range order {
		obj := objects[num-1]
		if obj == nil {
			return &SerializationError{Object: num, Reason: "object slot never filled"}
		}

		if w.recompact {
			if stream, ok := obj.(*core.Stream); ok && !stream.IsEncoded() {
				compressed := stream.Clone()
				if err := compressed.Encode(stream.Data); err != nil {
					return &SerializationError{Object: num, Reason: err.Error()}
				}
				// Short streams can grow under the zlib framing; keep
				// the raw form unless compression actually wins
				if len(compressed.Data) < len(stream.Data) {
					obj = compressed
				}
			}
		}

		offsets[i] = written
		if err := count(fmt.Fprintf(bw, "%d 0 obj\n", remap(num))); err != nil {
			return err
		}
		n, err := writeObject(bw, obj, remap)
		written += n
		if err != nil {
			return &SerializationError{Object: num, Reason: err.Error()}
		}
		if err := count(fmt.Fprintf(bw, "\nendobj\n")); err != nil {
			return err
		}
	}

	xrefOffset := written
	if err := count(fmt.Fprintf(bw, "xref\n0 %d\n", len(order)+1)); err != nil {
		return err
	}
	if err := count(fmt.Fprintf(bw, "0000000000 65535 f \n")); err != nil {
		return err
	}
	for _, offset := range offsets {
		if err := count(fmt.Fprintf(bw, "%010d 00000 n \n", offset)); err != nil {
			return err
		}
	}

	trailer := core.Dict{
		"Size": core.Int(len(order) + 1),
		"Root": core.IndirectRef{Number: remap(root.Number)},
		"ID":   fileID(),
	}
	if info.Number != 0 {
		trailer.Set("Info", core.IndirectRef{Number: remap(info.Number)})
	}

	if err := count(fmt.Fprintf(bw, "trailer\n")); err != nil {
		return err
	}
	if _, err := writeObject(bw, trailer, remap); err != nil {
		return err
	}
	if err := count(fmt.Fprintf(bw, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)); err != nil {
		return err
	}

	return bw.Flush()
}

// WriteFile renders doc to a file at the given path.
func (w *Writer) WriteFile(doc *compose.Document, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := w.Write(doc, f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Write renders doc to out with default options.
func Write(doc *compose.Document, out io.Writer) error {
	return New().Write(doc, out)
}

// fileID builds a fresh trailer /ID pair from random identifiers.
func fileID() core.Array {
	first := uuid.New()
	second := uuid.New()
	return core.Array{
		core.String(first[:]),
		core.String(second[:]),
	}
}

// reachableFrom walks the object graph from the given roots and returns the
// reachable object numbers in ascending order.
func reachableFrom(objects []core.Object, roots ...core.IndirectRef) ([]int, error) {
	seen := make(map[int]bool)

	var visit func(obj core.Object) error
	visit = func(obj core.Object) error {
		switch v := obj.(type) {
		case core.IndirectRef:
			if v.Number == 0 || seen[v.Number] {
				return nil
			}
			if v.Number > len(objects) {
				return &SerializationError{Object: v.Number, Reason: "reference beyond object table"}
			}
			seen[v.Number] = true
			target := objects[v.Number-1]
			if target == nil {
				return &SerializationError{Object: v.Number, Reason: "referenced object slot never filled"}
			}
			return visit(target)
		case core.Dict:
			for _, val := range v {
				if err := visit(val); err != nil {
					return err
				}
			}
		case core.Array:
			for _, elem := range v {
				if err := visit(elem); err != nil {
					return err
				}
			}
		case *core.Stream:
			return visit(v.Dict)
		}
		return nil
	}

	for _, root := range roots {
		if root.Number == 0 {
			continue
		}
		if err := visit(root); err != nil {
			return nil, err
		}
	}

	result := make([]int, 0, len(seen))
	for n := range seen {
		result = append(result, n)
	}
	sort.Ints(result)

	return result, nil
}
