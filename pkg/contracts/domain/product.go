package domain

// ProductType distinguishes simple products, variable parents and their variations
type ProductType string

const (
	ProductTypeSimple    ProductType = "simple"
	ProductTypeVariable  ProductType = "variable"
	ProductTypeVariation ProductType = "variation"
)

// Well-known taxonomy names
const (
	TaxonomyProductCategory = "product_cat"
	TaxonomyProductTag      = "product_tag"
)

// Product is a read-only view of a catalog product
type Product struct {
	ID       int64       `json:"id" yaml:"id" db:"id"`
	ParentID int64       `json:"parent_id,omitempty" yaml:"parent_id,omitempty" db:"parent_id"`
	Type     ProductType `json:"type" yaml:"type" db:"type"`
	SKU      string      `json:"sku" yaml:"sku" db:"sku"`
	Name     string      `json:"name" yaml:"name" db:"name"`
	// Attributes holds the option selected per attribute taxonomy for a variation,
	// e.g. "pa_size" -> "Large".
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Meta       map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// IsVariation reports whether the product is a variation of a variable parent
func (p *Product) IsVariation() bool {
	return p != nil && p.Type == ProductTypeVariation
}

// TaxonomyOwnerID returns the id whose taxonomy assignments apply to this product.
// Variations do not carry their own category assignment, so their parent is used.
func (p *Product) TaxonomyOwnerID() int64 {
	if p.IsVariation() && p.ParentID > 0 {
		return p.ParentID
	}
	return p.ID
}
