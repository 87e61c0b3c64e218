// internal/storage/models/transition.go
package models

// Transition is one committed protocol state transition: a curve
// initialization or purchase, or a listing create/cancel/sale.
type Transition struct {
	BaseModel
	Signature    string `gorm:"unique;not null;type:varchar(88)"`
	Kind         string `gorm:"index;not null;type:varchar(30)"`
	Mint         string `gorm:"index;not null;type:varchar(44)"`
	Actor        string `gorm:"index;not null;type:varchar(44)"`
	Counterparty string `gorm:"type:varchar(44)"`
	// Amount is token units for curve trades, always 1 for listing sales.
	Amount uint64 `gorm:"not null;default:0"`
	// Lamports is the cost of a curve buy, the price of a sale, or the fee
	// charged on a listing.
	Lamports uint64 `gorm:"not null;default:0"`
	Fee      uint64 `gorm:"not null;default:0"`
}

// Transition kinds.
const (
	KindCurveInit   = "curve_init"
	KindCurveBuy    = "curve_buy"
	KindListingNew  = "listing_new"
	KindListingGone = "listing_cancel"
	KindListingSold = "listing_sold"
)
