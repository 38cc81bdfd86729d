package domain

import (
	"time"
)

// Order is a read-only view of a purchase transaction as returned by an order store.
// Only the fields the exporter needs are carried.
type Order struct {
	ID                 int64             `json:"id" yaml:"id" db:"id"`
	CreatedAt          time.Time         `json:"created_at" yaml:"created_at" db:"created_at"`
	Status             string            `json:"status" yaml:"status" db:"status"`
	Billing            BillingContact    `json:"billing" yaml:"billing"`
	Shipping           Address           `json:"shipping" yaml:"shipping"`
	ShippingMethods    []string          `json:"shipping_methods,omitempty" yaml:"shipping_methods,omitempty"`
	PaymentMethodTitle string            `json:"payment_method_title" yaml:"payment_method_title" db:"payment_method_title"`
	Total              float64           `json:"total" yaml:"total" db:"total"`
	Meta               map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
	Items              []LineItem        `json:"items,omitempty" yaml:"items,omitempty"`
}

// BillingContact holds the billing side customer details
type BillingContact struct {
	FirstName string `json:"first_name" yaml:"first_name" db:"billing_first_name"`
	LastName  string `json:"last_name" yaml:"last_name" db:"billing_last_name"`
	Email     string `json:"email" yaml:"email" db:"billing_email"`
	Phone     string `json:"phone" yaml:"phone" db:"billing_phone"`
}

// Address is a postal address
type Address struct {
	Address1 string `json:"address_1" yaml:"address_1" db:"address_1"`
	Address2 string `json:"address_2" yaml:"address_2" db:"address_2"`
	City     string `json:"city" yaml:"city" db:"city"`
	State    string `json:"state" yaml:"state" db:"state"`
	Postcode string `json:"postcode" yaml:"postcode" db:"postcode"`
}

// Lines returns the non-blank address components in display order
func (a Address) Lines() []string {
	parts := []string{a.Address1, a.Address2, a.City, a.State, a.Postcode}
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			lines = append(lines, p)
		}
	}
	return lines
}

// LineItem is one product line within an order
type LineItem struct {
	ID          int64             `json:"id" yaml:"id" db:"id"`
	ProductID   int64             `json:"product_id" yaml:"product_id" db:"product_id"`
	VariationID int64             `json:"variation_id,omitempty" yaml:"variation_id,omitempty" db:"variation_id"`
	Name        string            `json:"name" yaml:"name" db:"name"`
	Quantity    float64           `json:"quantity" yaml:"quantity" db:"quantity"`
	Total       float64           `json:"total" yaml:"total" db:"total"`
	TotalTax    float64           `json:"total_tax" yaml:"total_tax" db:"total_tax"`
	Subtotal    float64           `json:"subtotal" yaml:"subtotal" db:"subtotal"`
	Meta        map[string]string `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// EffectiveProductID returns the variation id when the line refers to a variation,
// otherwise the product id.
func (li LineItem) EffectiveProductID() int64 {
	if li.VariationID > 0 {
		return li.VariationID
	}
	return li.ProductID
}
