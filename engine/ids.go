package engine

// Categories used by the exchange's id generator. Each category is an
// independent counter; order and transaction ids do not share a sequence.
const (
	CategoryOrder       = "order"
	CategoryTransaction = "transaction"
)

// IDs hands out identifiers partitioned by category. Ids start at 1,
// strictly increase, and are never reused, even after a cancel. The
// generator is owned by the exchange and mutated under the same
// single-writer discipline as the rest of the core.
type IDs struct {
	next map[string]uint64
}

// NewIDs returns an id generator with all categories at zero.
func NewIDs() *IDs {
	return &IDs{next: make(map[string]uint64)}
}

// Next returns a fresh id for the category.
func (g *IDs) Next(category string) uint64 {
	g.next[category]++
	return g.next[category]
}
