package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/pages"
	"github.com/tsawler/folio/resolver"
)

// MalformedDocumentError reports a structural defect in an input document.
// Offset is the byte position where parsing gave up, best-effort; zero when
// the failure is not positional.
type MalformedDocumentError struct {
	Offset int64
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document at offset %d: %s", e.Offset, e.Reason)
}

// malformed builds a MalformedDocumentError with a formatted reason.
func malformed(offset int64, format string, args ...interface{}) error {
	return &MalformedDocumentError{
		Offset: offset,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Version represents a PDF version
type Version struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Document is an immutable, parsed view of a PDF byte stream. The page count
// is fixed at parse time; all range resolution against this document uses it
// as the upper bound.
type Document struct {
	data     []byte
	xref     *core.XRefTable
	trailer  core.Dict
	version  Version
	objCache map[int]core.Object       // Cache for loaded objects
	stmCache map[int]*core.ObjectStream // Cache for loaded object streams
	res      *resolver.ObjectResolver
	pageTree *pages.PageTree
	pageList []*pages.Page
}

// Ensure Document satisfies the resolver and page-tree interfaces
var (
	_ resolver.ObjectReader = (*Document)(nil)
	_ pages.ObjectResolver  = (*Document)(nil)
)

var headerRe = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// Open reads and parses the PDF file at the given path.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return FromBytes(data)
}

// New reads and parses a PDF document from r.
func New(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return FromBytes(data)
}

// FromBytes parses a PDF document from the given byte slice. The slice is
// retained but never mutated.
func FromBytes(data []byte) (*Document, error) {
	d := &Document{
		data:     data,
		objCache: make(map[int]core.Object),
		stmCache: make(map[int]*core.ObjectStream),
	}
	d.res = resolver.NewResolver(d)

	version, err := d.parseHeader()
	if err != nil {
		return nil, err
	}
	d.version = version

	if err := d.loadXRef(); err != nil {
		return nil, err
	}

	// Walk the page tree eagerly: page count is part of the document's
	// parsed identity, and a cyclic or dangling tree must fail parse,
	// not the first page access.
	if err := d.loadPages(); err != nil {
		return nil, err
	}

	return d, nil
}

// parseHeader parses the PDF header (%PDF-x.y)
func (d *Document) parseHeader() (Version, error) {
	limit := len(d.data)
	if limit > 32 {
		limit = 32
	}

	matches := headerRe.FindSubmatch(d.data[:limit])
	if matches == nil {
		return Version{}, malformed(0, "missing %%PDF header")
	}

	var major, minor int
	fmt.Sscanf(string(matches[1]), "%d", &major)
	fmt.Sscanf(string(matches[2]), "%d", &minor)

	return Version{Major: major, Minor: minor}, nil
}

// loadXRef loads the cross-reference table, merging incremental updates.
func (d *Document) loadXRef() error {
	xrefParser := core.NewXRefParser(bytes.NewReader(d.data))

	tables, err := xrefParser.ParseAllXRefs()
	if err != nil {
		return malformed(0, "cross-reference parsing failed: %v", err)
	}

	d.xref = core.MergeXRefTables(tables...)
	d.trailer = d.xref.Trailer
	return nil
}

// loadPages resolves the catalog and flattens the page tree.
func (d *Document) loadPages() error {
	catalogDict, err := d.Catalog()
	if err != nil {
		return err
	}

	catalog := pages.NewCatalog(catalogDict, d)
	root, err := catalog.Pages()
	if err != nil {
		return malformed(0, "page tree root: %v", err)
	}

	d.pageTree = pages.NewPageTree(root, d)
	list, err := d.pageTree.Pages()
	if err != nil {
		return malformed(0, "page tree traversal: %v", err)
	}
	if len(list) == 0 {
		return malformed(0, "document has no pages")
	}

	d.pageList = list
	return nil
}

// Version returns the PDF version from the header.
func (d *Document) Version() Version {
	return d.version
}

// Trailer returns the trailer dictionary
func (d *Document) Trailer() core.Dict {
	return d.trailer
}

// Len returns the size of the source byte stream.
func (d *Document) Len() int {
	return len(d.data)
}

// GetObject loads an object by its number, following object-stream
// indirection for PDF 1.5+ compressed objects. Loaded objects are cached.
func (d *Document) GetObject(objNum int) (core.Object, error) {
	if obj, ok := d.objCache[objNum]; ok {
		return obj, nil
	}

	entry, ok := d.xref.Get(objNum)
	if !ok {
		return nil, malformed(0, "object %d not found in cross-reference table", objNum)
	}

	if !entry.InUse {
		return nil, malformed(0, "object %d is marked free", objNum)
	}

	var obj core.Object
	var err error
	if entry.InStream {
		obj, err = d.loadFromObjectStream(objNum, entry)
	} else {
		obj, err = d.loadAtOffset(objNum, entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	d.objCache[objNum] = obj
	return obj, nil
}

// loadAtOffset parses the indirect object at a byte offset in the file.
func (d *Document) loadAtOffset(objNum int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(d.data)) {
		return nil, malformed(offset, "object %d offset out of bounds", objNum)
	}

	parser := core.NewParser(bytes.NewReader(d.data[offset:]))
	parser.SetReferenceResolver(d)

	indObj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, malformed(offset+parser.Pos(), "object %d: %v", objNum, err)
	}

	if indObj.Ref.Number != objNum {
		return nil, malformed(offset, "object number mismatch: expected %d, got %d", objNum, indObj.Ref.Number)
	}

	return indObj.Object, nil
}

// loadFromObjectStream extracts a compressed object from its containing
// object stream (a type 2 cross-reference entry).
func (d *Document) loadFromObjectStream(objNum int, entry *core.XRefEntry) (core.Object, error) {
	objStm, ok := d.stmCache[entry.StreamNum]
	if !ok {
		container, err := d.GetObject(entry.StreamNum)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d: %w", entry.StreamNum, err)
		}

		stream, ok := container.(*core.Stream)
		if !ok {
			return nil, malformed(0, "object stream %d is not a stream: %T", entry.StreamNum, container)
		}

		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, malformed(0, "object stream %d: %v", entry.StreamNum, err)
		}
		d.stmCache[entry.StreamNum] = objStm
	}

	obj, num, err := objStm.GetObjectByIndex(entry.StreamIndex)
	if err != nil || num != objNum {
		// Index disagreement between xref and stream header; fall back to
		// searching by object number
		obj, _, err = objStm.GetObjectByNumber(objNum)
		if err != nil {
			return nil, malformed(0, "object %d not found in object stream %d: %v", objNum, entry.StreamNum, err)
		}
	}

	return obj, nil
}

// ResolveReference resolves an indirect reference
func (d *Document) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return d.GetObject(ref.Number)
}

// Resolve resolves an object if it's an indirect reference, otherwise
// returns it as-is. Implements pages.ObjectResolver.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return d.res.ResolveReference(ref)
	}
	return obj, nil
}

// Catalog returns the document catalog (root object)
func (d *Document) Catalog() (core.Dict, error) {
	rootRef := d.trailer.Get("Root")
	if rootRef == nil {
		return nil, malformed(0, "trailer missing /Root entry")
	}

	rootObj, err := d.Resolve(rootRef)
	if err != nil {
		return nil, malformed(0, "failed to resolve catalog: %v", err)
	}

	catalog, ok := rootObj.(core.Dict)
	if !ok {
		return nil, malformed(0, "catalog is not a dictionary: %T", rootObj)
	}

	return catalog, nil
}

// PageCount returns the number of pages. Fixed at parse time.
func (d *Document) PageCount() int {
	return len(d.pageList)
}

// Page returns the page at the given 1-based index.
func (d *Document) Page(num int) (*pages.Page, error) {
	if num < 1 || num > len(d.pageList) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", num, len(d.pageList))
	}
	return d.pageList[num-1], nil
}

// Pages returns the flattened, ordered page list.
func (d *Document) Pages() []*pages.Page {
	return d.pageList
}
