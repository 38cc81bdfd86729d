package testutil

import (
	"time"

	"wexport/pkg/contracts/domain"
)

// Catalog ids used by the fixtures
const (
	ProductTShirt      int64 = 10 // variable parent
	ProductTShirtLarge int64 = 11 // variation of ProductTShirt, pa_size=Large
	ProductMug         int64 = 20 // simple
	ProductPoster      int64 = 30 // simple, no categories
	ProductDeleted     int64 = 99 // referenced by orders, absent from the catalog
)

// SampleProducts returns the fixture catalog keyed by id
func SampleProducts() map[int64]domain.Product {
	return map[int64]domain.Product{
		ProductTShirt: {
			ID:   ProductTShirt,
			Type: domain.ProductTypeVariable,
			SKU:  "TS",
			Name: "T-Shirt",
			Meta: map[string]string{"_hs_code": "6109"},
		},
		ProductTShirtLarge: {
			ID:         ProductTShirtLarge,
			ParentID:   ProductTShirt,
			Type:       domain.ProductTypeVariation,
			SKU:        "TS-L",
			Name:       "T-Shirt - Large",
			Attributes: map[string]string{"pa_size": "Large"},
			Meta:       map[string]string{"_gtin": "0001"},
		},
		ProductMug: {
			ID:   ProductMug,
			Type: domain.ProductTypeSimple,
			SKU:  "MUG",
			Name: "Mug",
			Meta: map[string]string{"_hs_code": "6912", "_discontinued": "0"},
		},
		ProductPoster: {
			ID:   ProductPoster,
			Type: domain.ProductTypeSimple,
			SKU:  "",
			Name: "Poster",
		},
	}
}

// SampleTerms returns taxonomy assignments keyed by product id then taxonomy
func SampleTerms() map[int64]map[string][]string {
	return map[int64]map[string][]string{
		ProductTShirt: {
			domain.TaxonomyProductCategory: {"Clothing", "Summer"},
			"pa_size":                      {"Small", "Large"},
			"product_brand":                {"Acme"},
		},
		ProductMug: {
			domain.TaxonomyProductCategory: {"Kitchen"},
			"product_brand":                {"Acme", "HomeCo"},
		},
	}
}

// SampleTaxonomies returns the registered taxonomy names
func SampleTaxonomies() []string {
	return []string{domain.TaxonomyProductCategory, domain.TaxonomyProductTag, "pa_size", "product_brand"}
}

// SampleOrders returns fixture orders, newest first.
//
//	1003 completed, 2024-03-10, two lines (variation + simple)
//	1002 completed, 2024-03-05, no lines
//	1001 processing, 2024-03-01, one line for a deleted product
func SampleOrders() []domain.Order {
	return []domain.Order{
		{
			ID:        1003,
			CreatedAt: time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC),
			Status:    "wc-completed",
			Billing: domain.BillingContact{
				FirstName: "Ada",
				LastName:  "Lovelace",
				Email:     "ada@example.com",
				Phone:     "555-0100",
			},
			Shipping: domain.Address{
				Address1: "1 Analytical St",
				City:     "London",
				Postcode: "N1",
			},
			ShippingMethods:    []string{"Flat rate"},
			PaymentMethodTitle: "Credit card",
			Total:              57.5,
			Meta:               map[string]string{"_customer_note": "Leave at door"},
			Items: []domain.LineItem{
				{
					ID:          1,
					ProductID:   ProductTShirt,
					VariationID: ProductTShirtLarge,
					Name:        "T-Shirt - Large",
					Quantity:    2,
					Total:       40,
					TotalTax:    4,
					Subtotal:    40,
				},
				{
					ID:        2,
					ProductID: ProductMug,
					Name:      "Mug",
					Quantity:  1,
					Total:     12.5,
					TotalTax:  1.25,
					Subtotal:  12.5,
					Meta:      map[string]string{"_gift_wrap": "yes"},
				},
			},
		},
		{
			ID:        1002,
			CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
			Status:    "wc-completed",
			Billing: domain.BillingContact{
				FirstName: "Grace",
				LastName:  "Hopper",
				Email:     "grace@example.com",
			},
			PaymentMethodTitle: "Bank transfer",
			Total:              0,
		},
		{
			ID:        1001,
			CreatedAt: time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC),
			Status:    "wc-processing",
			Billing: domain.BillingContact{
				FirstName: "Alan",
				LastName:  "Turing",
				Email:     "alan@example.com",
			},
			ShippingMethods:    []string{"Local pickup", "Express"},
			PaymentMethodTitle: "Cash",
			Total:              5,
			Items: []domain.LineItem{
				{
					ID:        3,
					ProductID: ProductDeleted,
					Name:      "Discontinued item",
					Quantity:  1,
					Total:     5,
					Subtotal:  5,
				},
			},
		},
	}
}
