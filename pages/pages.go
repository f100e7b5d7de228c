package pages

import (
	"fmt"

	"github.com/tsawler/folio/core"
)

// inheritable lists the page attributes that /Pages nodes pass down to
// descendants, per the PDF page tree inheritance rules.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// ObjectResolver is the interface for resolving indirect references.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Pages returns the page tree root dictionary
func (c *Catalog) Pages() (core.Dict, error) {
	pagesRef := c.dict.Get("Pages")
	if pagesRef == nil {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}

	pagesObj, err := c.resolver.Resolve(pagesRef)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}

	pagesDict, ok := pagesObj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", pagesObj)
	}

	return pagesDict, nil
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page // Flattened page list, populated by Load
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Load traverses the page tree once, building the flattened page list and
// rejecting cyclic trees. Subsequent calls are no-ops.
func (t *PageTree) Load() error {
	if t.pages != nil {
		return nil
	}

	t.pages = make([]*Page, 0)
	visited := make(map[int]bool)

	if err := t.traverse(t.root, core.IndirectRef{}, nil, visited); err != nil {
		t.pages = nil
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}

	return nil
}

// Count returns the total number of pages.
func (t *PageTree) Count() (int, error) {
	if err := t.Load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.Load(); err != nil {
		return nil, err
	}

	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}

	return t.pages[index], nil
}

// Pages returns all pages as a slice
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.Load(); err != nil {
		return nil, err
	}

	return t.pages, nil
}

// traverse recursively walks a page tree node. inherited carries the
// inheritable attributes accumulated from ancestor /Pages nodes (nearest
// ancestor wins). visited holds the object numbers of nodes on the current
// root-to-leaf path, so a cyclic tree is detected rather than looped over.
func (t *PageTree) traverse(node core.Dict, ref core.IndirectRef, inherited core.Dict, visited map[int]bool) error {
	if ref.Number != 0 {
		if visited[ref.Number] {
			return fmt.Errorf("cyclic page tree: node %d revisited", ref.Number)
		}
		visited[ref.Number] = true
		defer delete(visited, ref.Number)
	}

	typeName, ok := node.GetName("Type")
	if !ok {
		return fmt.Errorf("page node missing /Type entry")
	}

	switch string(typeName) {
	case "Pages":
		// Merge this node's inheritable attributes over the inherited set,
		// copying on write so sibling subtrees stay independent
		merged := inherited
		copied := false
		for _, key := range inheritable {
			if val := node.Get(key); val != nil {
				if !copied {
					next := make(core.Dict, len(inherited)+1)
					for k, v := range inherited {
						next[k] = v
					}
					merged = next
					copied = true
				}
				merged[key] = val
			}
		}

		kidsObj := node.Get("Kids")
		if kidsObj == nil {
			return fmt.Errorf("Pages node missing /Kids entry")
		}

		kidsResolved, err := t.resolver.Resolve(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}

		kids, ok := kidsResolved.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %T", kidsResolved)
		}

		for i, kidObj := range kids {
			kidRef, _ := kidObj.(core.IndirectRef)

			kidResolved, err := t.resolver.Resolve(kidObj)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}

			kidDict, ok := kidResolved.(core.Dict)
			if !ok {
				return fmt.Errorf("invalid kid type: %T", kidResolved)
			}

			if err := t.traverse(kidDict, kidRef, merged, visited); err != nil {
				return err
			}
		}

	case "Page":
		t.pages = append(t.pages, NewPage(node, ref, inherited, t.resolver))

	default:
		return fmt.Errorf("unexpected page node type: %s", typeName)
	}

	return nil
}

// Page represents a single PDF page
type Page struct {
	dict      core.Dict
	ref       core.IndirectRef // The page's own object reference (zero if inlined)
	inherited core.Dict        // Inheritable attributes accumulated from ancestors
	resolver  ObjectResolver
}

// NewPage creates a new page from a leaf dictionary and the inheritable
// attributes collected from its ancestors.
func NewPage(dict core.Dict, ref core.IndirectRef, inherited core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:      dict,
		ref:       ref,
		inherited: inherited,
		resolver:  resolver,
	}
}

// Dict returns the page's own dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// Ref returns the page's indirect reference within its source document.
// The zero reference means the page dictionary was not an indirect object.
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// attr looks up an attribute on the page, falling back to the inherited set.
func (p *Page) attr(name string) core.Object {
	if obj := p.dict.Get(name); obj != nil {
		return obj
	}
	if p.inherited != nil {
		return p.inherited.Get(name)
	}
	return nil
}

// MediaBox returns the page media box [x1 y1 x2 y2]. Inheritable.
func (p *Page) MediaBox() ([]float64, error) {
	return p.getBox("MediaBox")
}

// CropBox returns the page crop box. Inheritable; defaults to MediaBox.
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.getBox("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

// getBox retrieves a box attribute (inheritable)
func (p *Page) getBox(name string) ([]float64, error) {
	boxObj := p.attr(name)
	if boxObj == nil {
		return nil, fmt.Errorf("%s not found", name)
	}

	boxResolved, err := p.resolver.Resolve(boxObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	boxArr, ok := boxResolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("invalid %s type: %T", name, boxResolved)
	}

	if len(boxArr) != 4 {
		return nil, fmt.Errorf("invalid %s length: %d (expected 4)", name, len(boxArr))
	}

	box := make([]float64, 4)
	for i := range boxArr {
		n, ok := boxArr.GetNumber(i)
		if !ok {
			return nil, fmt.Errorf("invalid %s element type: %T", name, boxArr[i])
		}
		box[i] = n
	}

	return box, nil
}

// Resources returns the page resources dictionary. Inheritable.
func (p *Page) Resources() (core.Dict, error) {
	resourcesObj := p.attr("Resources")
	if resourcesObj == nil {
		return nil, fmt.Errorf("resources not found")
	}

	resourcesResolved, err := p.resolver.Resolve(resourcesObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}

	resourcesDict, ok := resourcesResolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resourcesResolved)
	}

	return resourcesDict, nil
}

// Contents returns the page content stream(s)
func (p *Page) Contents() ([]core.Object, error) {
	contentsObj := p.dict.Get("Contents")
	if contentsObj == nil {
		return nil, nil // Contents is optional
	}

	contentsResolved, err := p.resolver.Resolve(contentsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	// Contents can be a single stream or array of streams
	switch v := contentsResolved.(type) {
	case *core.Stream:
		return []core.Object{v}, nil
	case core.Array:
		streams := make([]core.Object, len(v))
		for i, elem := range v {
			resolved, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			streams[i] = resolved
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", contentsResolved)
	}
}

// Rotate returns the page rotation in degrees (0, 90, 180, or 270).
// Inheritable; defaults to 0.
func (p *Page) Rotate() int {
	rotateObj := p.attr("Rotate")
	if rotateObj == nil {
		return 0
	}

	if resolved, err := p.resolver.Resolve(rotateObj); err == nil {
		rotateObj = resolved
	}

	if rotate, ok := rotateObj.(core.Int); ok {
		// Normalize to the canonical quarter turns
		r := ((int(rotate) % 360) + 360) % 360
		if r%90 == 0 {
			return r
		}
	}

	return 0
}

// Inherited returns the inheritable attributes this page picked up from its
// ancestors, keyed by attribute name. Used when flattening a page into a new
// document whose tree carries no inheritance.
func (p *Page) Inherited() core.Dict {
	return p.inherited
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
