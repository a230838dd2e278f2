package ga4gh

import "context"

// VariantReader yields search results one variant at a time.
type VariantReader interface {
	// Next returns the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)
}

// VariantIterator walks the pages of a variant search.
type VariantIterator struct {
	ctx    context.Context
	client *Client
	req    SearchVariantsRequest

	page []*Variant
	pos  int
	done bool
}

// Next returns the next variant.
// Returns nil, nil when there are no more variants.
func (it *VariantIterator) Next() (*Variant, error) {
	for it.pos >= len(it.page) {
		if it.done {
			return nil, nil
		}
		if err := it.fetch(); err != nil {
			return nil, err
		}
	}
	v := it.page[it.pos]
	it.pos++
	return v, nil
}

// fetch loads the page named by req.PageToken and advances the token.
func (it *VariantIterator) fetch() error {
	resp, err := it.client.searchPage(it.ctx, it.req)
	if err != nil {
		return err
	}
	it.page = resp.Variants
	it.pos = 0
	it.req.PageToken = resp.NextPageToken
	it.done = resp.NextPageToken == ""
	return nil
}
