package memory

import (
	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/pkg/cmap"
)

// HolderIndex maps each owner to the ids minted to them, oldest first.
// Entries are only ever appended.
type HolderIndex struct {
	index *cmap.Map[domain.Address, []domain.TokenID]
}

// NewHolderIndex creates an empty holder index.
func NewHolderIndex() *HolderIndex {
	return &HolderIndex{
		index: cmap.New[domain.Address, []domain.TokenID](),
	}
}

// Append records id as the newest token of owner.
func (i *HolderIndex) Append(owner domain.Address, id domain.TokenID) {
	i.index.Update(owner, func(ids []domain.TokenID, _ bool) []domain.TokenID {
		return append(ids, id)
	})
}

// TokensOf returns a copy of owner's ids in mint order.
func (i *HolderIndex) TokensOf(owner domain.Address) []domain.TokenID {
	var out []domain.TokenID
	i.index.View(owner, func(ids []domain.TokenID, _ bool) {
		out = make([]domain.TokenID, len(ids))
		copy(out, ids)
	})
	return out
}

// Holders returns the number of owners with at least one token.
func (i *HolderIndex) Holders() int {
	return i.index.Count()
}

// Reset drops every entry. Used when restoring from a snapshot.
func (i *HolderIndex) Reset() {
	i.index.Clear()
}
