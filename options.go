package folio

// PipelineOptions holds configuration accumulated by a pipeline's chain
// methods before a terminal operation runs.
type PipelineOptions struct {
	// Page selection expression ("" means all pages)
	expression string

	// Rotation delta in degrees, applied to every output page
	rotateDelta int
	hasRotate   bool

	// Output page permutation (1-based, over the selected pages)
	permutation []int

	// Serialization
	recompact bool
}

// defaultOptions returns the default pipeline options.
func defaultOptions() PipelineOptions {
	return PipelineOptions{
		expression: "", // all pages
	}
}

// clone creates a deep copy of PipelineOptions.
func (o PipelineOptions) clone() PipelineOptions {
	newOpts := PipelineOptions{
		expression:  o.expression,
		rotateDelta: o.rotateDelta,
		hasRotate:   o.hasRotate,
		recompact:   o.recompact,
	}

	if o.permutation != nil {
		newOpts.permutation = make([]int, len(o.permutation))
		copy(newOpts.permutation, o.permutation)
	}

	return newOpts
}
