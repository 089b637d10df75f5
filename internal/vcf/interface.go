package vcf

// VariantParser yields VCF records in file order. The classify pipeline
// batches on chromosome changes, so implementations must not reorder.
type VariantParser interface {
	// Next returns nil, nil at end of input.
	Next() (*Variant, error)
	Close() error
	LineNumber() int
}

var _ VariantParser = (*Parser)(nil)
