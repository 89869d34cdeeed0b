package entity

import "github.com/shopspring/decimal"

// AddressVolume accumulates one trader's activity over a run. Addresses
// are stored in normalized (lowercase hex) form.
type AddressVolume struct {
	Address     string
	TotalVolume decimal.Decimal
	// Collections maps collection tag to the volume traded in that
	// collection's pools. Only collections with activity appear.
	Collections map[string]decimal.Decimal
	TxCount     int
}

// NewAddressVolume creates an empty accumulator for an address.
func NewAddressVolume(address string) *AddressVolume {
	return &AddressVolume{
		Address:     address,
		TotalVolume: decimal.Zero,
		Collections: make(map[string]decimal.Decimal),
	}
}

// Add folds one trade into the accumulator.
func (v *AddressVolume) Add(collection string, amount decimal.Decimal) {
	v.TotalVolume = v.TotalVolume.Add(amount)
	v.Collections[collection] = v.Collections[collection].Add(amount)
	v.TxCount++
}

// CollectionVolume returns the volume traded in a collection, zero if none.
func (v *AddressVolume) CollectionVolume(collection string) decimal.Decimal {
	return v.Collections[collection]
}
