package compose

import (
	"errors"
	"fmt"

	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/pages"
	"github.com/tsawler/folio/reader"
)

var (
	// ErrInsufficientInput reports a merge with fewer than two sources.
	ErrInsufficientInput = errors.New("merge requires at least two source documents")

	// ErrEmptyDocument reports a source document contributing zero pages.
	ErrEmptyDocument = errors.New("source document has no pages")

	// ErrInvalidPermutation reports a reorder whose index list is not a
	// bijection over the source's pages.
	ErrInvalidPermutation = errors.New("invalid page permutation")

	// ErrInvalidRotation reports a rotation delta that is not a multiple
	// of 90 degrees.
	ErrInvalidRotation = errors.New("rotation must be a multiple of 90 degrees")
)

// Document is an output document under construction. Objects are numbered
// contiguously from 1 in allocation order; object 1 is the catalog and
// object 2 the single page tree node, both filled in by Finalize.
type Document struct {
	objects  []core.Object // object N lives at objects[N-1]
	pageRefs []core.IndirectRef
	info     core.Dict

	catalogRef core.IndirectRef
	pagesRef   core.IndirectRef
	infoRef    core.IndirectRef // zero Number when the document has no info

	imp *importer
}

// NewDocument creates an empty output document with the catalog and page
// tree node pre-allocated.
func NewDocument() *Document {
	d := &Document{}
	d.catalogRef = d.allocate(nil)
	d.pagesRef = d.allocate(nil)
	d.imp = newImporter(d)
	return d
}

// allocate appends a slot for obj and returns its fresh reference.
func (d *Document) allocate(obj core.Object) core.IndirectRef {
	d.objects = append(d.objects, obj)
	return core.IndirectRef{Number: len(d.objects)}
}

// set stores obj at an already allocated reference.
func (d *Document) set(ref core.IndirectRef, obj core.Object) {
	d.objects[ref.Number-1] = obj
}

// AppendPage deep-copies page from src into the document, carrying every
// object the page transitively references. Inherited attributes are written
// onto the copied page dictionary so the flat output tree preserves them.
func (d *Document) AppendPage(src *reader.Document, page *pages.Page) error {
	dict := page.Dict().Clone()

	// The source /Parent points into the source tree; the copy gets the
	// output tree node instead.
	dict.Delete("Parent")

	for key, val := range page.Inherited() {
		if !dict.Has(key) {
			dict.Set(key, core.CloneObject(val))
		}
	}

	// The output slot is allocated and bound before the walk, so objects
	// that point back at the page (annotation /P entries and the like)
	// land on this copy instead of importing a second one.
	ref := d.allocate(nil)
	if srcRef := page.Ref(); srcRef.Number != 0 {
		d.imp.bind(src, srcRef.Number, ref)
	}

	copied, err := d.imp.importObject(src, dict)
	if err != nil {
		return fmt.Errorf("failed to copy page: %w", err)
	}

	pageDict := copied.(core.Dict)
	pageDict.Set("Parent", d.pagesRef)
	d.set(ref, pageDict)
	d.pageRefs = append(d.pageRefs, ref)

	return nil
}

// AppendPages copies the pages at the given 1-based indices from src, in the
// order given.
func (d *Document) AppendPages(src *reader.Document, indices []int) error {
	for _, n := range indices {
		page, err := src.Page(n)
		if err != nil {
			return err
		}
		if err := d.AppendPage(src, page); err != nil {
			return fmt.Errorf("page %d: %w", n, err)
		}
	}
	return nil
}

// CarryInfo copies the document information dictionary from src, decoupled
// from the source object graph. The first source with metadata wins; later
// calls are no-ops.
func (d *Document) CarryInfo(src *reader.Document) error {
	if d.info != nil {
		return nil
	}

	infoDict, err := src.InfoDict()
	if err != nil || infoDict == nil {
		return err
	}

	copied, err := d.imp.importObject(src, infoDict.Clone())
	if err != nil {
		return fmt.Errorf("failed to copy info dictionary: %w", err)
	}

	d.info = copied.(core.Dict)
	return nil
}

// SetRotation overwrites the rotation of the page at the given 1-based
// output index with an absolute value in {0, 90, 180, 270}.
func (d *Document) SetRotation(index, degrees int) error {
	if index < 1 || index > len(d.pageRefs) {
		return fmt.Errorf("page %d out of range [1, %d]", index, len(d.pageRefs))
	}
	if degrees%90 != 0 || degrees < 0 || degrees >= 360 {
		return fmt.Errorf("%w: %d", ErrInvalidRotation, degrees)
	}

	pageDict := d.objects[d.pageRefs[index-1].Number-1].(core.Dict)
	if degrees == 0 {
		pageDict.Delete("Rotate")
	} else {
		pageDict.Set("Rotate", core.Int(degrees))
	}
	return nil
}

// Finalize fills in the catalog and page tree node. Idempotent; adding pages
// after finalizing and finalizing again is allowed.
func (d *Document) Finalize() {
	kids := make(core.Array, len(d.pageRefs))
	for i, ref := range d.pageRefs {
		kids[i] = ref
	}

	d.set(d.pagesRef, core.Dict{
		"Type":  core.Name("Pages"),
		"Kids":  kids,
		"Count": core.Int(len(d.pageRefs)),
	})

	d.set(d.catalogRef, core.Dict{
		"Type":  core.Name("Catalog"),
		"Pages": d.pagesRef,
	})

	if d.info != nil && d.infoRef.Number == 0 {
		d.infoRef = d.allocate(d.info)
	}
}

// PageCount returns the number of pages appended so far.
func (d *Document) PageCount() int {
	return len(d.pageRefs)
}

// PageRefs returns the output references of the appended pages, in order.
func (d *Document) PageRefs() []core.IndirectRef {
	return d.pageRefs
}

// Objects returns the object table: object N is at index N-1. Slots are nil
// until Finalize fills the structural objects in.
func (d *Document) Objects() []core.Object {
	return d.objects
}

// Object returns the object with the given number.
func (d *Document) Object(num int) (core.Object, error) {
	if num < 1 || num > len(d.objects) {
		return nil, fmt.Errorf("object %d out of range [1, %d]", num, len(d.objects))
	}
	return d.objects[num-1], nil
}

// Root returns the catalog reference.
func (d *Document) Root() core.IndirectRef {
	return d.catalogRef
}

// InfoRef returns the info dictionary reference, or a zero reference when
// the document carries no metadata. Valid after Finalize.
func (d *Document) InfoRef() core.IndirectRef {
	return d.infoRef
}

// importKey identifies a source object across multiple source documents.
type importKey struct {
	src *reader.Document
	num int
}

// importer deep-copies object graphs from source documents into one output,
// remapping indirect references to fresh output numbers. A source object
// reached twice (shared resources, fonts) is copied once.
type importer struct {
	dst  *Document
	refs map[importKey]core.IndirectRef
}

func newImporter(dst *Document) *importer {
	return &importer{
		dst:  dst,
		refs: make(map[importKey]core.IndirectRef),
	}
}

// bind records that source object num already has an output reference.
func (im *importer) bind(src *reader.Document, num int, ref core.IndirectRef) {
	im.refs[importKey{src, num}] = ref
}

// importObject returns a copy of obj with every indirect reference remapped
// into the output document, importing referenced objects as needed.
func (im *importer) importObject(src *reader.Document, obj core.Object) (core.Object, error) {
	switch v := obj.(type) {
	case core.IndirectRef:
		return im.importRef(src, v)

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, val := range v {
			copied, err := im.importObject(src, val)
			if err != nil {
				return nil, fmt.Errorf("/%s: %w", key, err)
			}
			out[key] = copied
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			copied, err := im.importObject(src, elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = copied
		}
		return out, nil

	case *core.Stream:
		dict, err := im.importObject(src, v.Dict)
		if err != nil {
			return nil, err
		}
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		return &core.Stream{Dict: dict.(core.Dict), Data: data}, nil

	default:
		// Scalars are value types
		return obj, nil
	}
}

// importRef maps a source reference to an output reference, copying the
// referenced object on first sight. The output slot is allocated before the
// body is imported, so reference cycles terminate.
func (im *importer) importRef(src *reader.Document, ref core.IndirectRef) (core.Object, error) {
	key := importKey{src, ref.Number}
	if mapped, ok := im.refs[key]; ok {
		return mapped, nil
	}

	srcObj, err := src.GetObject(ref.Number)
	if err != nil {
		// Dangling references are legal in PDF and resolve to null
		return core.Null{}, nil
	}

	newRef := im.dst.allocate(nil)
	im.refs[key] = newRef

	copied, err := im.importObject(src, srcObj)
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", ref.Number, err)
	}

	im.dst.set(newRef, copied)
	return newRef, nil
}
