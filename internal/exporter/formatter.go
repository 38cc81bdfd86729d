package exporter

import (
	"context"
	"fmt"
	"strings"

	"wexport/pkg/contracts/domain"
)

const listSeparator = ", "

// Formatter renders orders and line items into rows keyed by column identifier
type Formatter struct {
	catalog             Catalog
	stripVariationNames bool
}

// NewFormatter creates a formatter reading product data from catalog
func NewFormatter(catalog Catalog, stripVariationNames bool) *Formatter {
	return &Formatter{
		catalog:             catalog,
		stripVariationNames: stripVariationNames,
	}
}

// FormatOrder renders the order level columns. Identifiers outside the
// vocabulary are looked up in the order metadata.
func (f *Formatter) FormatOrder(order domain.Order, columns []string) Row {
	row := make(Row, len(columns))
	for _, c := range columns {
		row[c] = orderValue(order, c)
	}
	return row
}

func orderValue(order domain.Order, column string) string {
	switch column {
	case ColOrderID:
		return formatInt(order.ID)
	case ColOrderDate:
		return formatDate(order.CreatedAt)
	case ColCustomerName:
		return strings.TrimSpace(order.Billing.FirstName + " " + order.Billing.LastName)
	case ColCustomerEmail:
		return order.Billing.Email
	case ColBillingPhone:
		return order.Billing.Phone
	case ColShippingAddress:
		return strings.Join(order.Shipping.Lines(), listSeparator)
	case ColShippingMethod:
		return strings.Join(order.ShippingMethods, listSeparator)
	case ColPaymentMethod:
		return order.PaymentMethodTitle
	case ColOrderStatus:
		return order.Status
	case ColOrderTotal:
		return formatFloat(order.Total)
	default:
		return order.Meta[column]
	}
}

// FormatItem renders the line item columns. A product missing from the
// catalog yields empty product derived cells; catalog failures are returned.
func (f *Formatter) FormatItem(ctx context.Context, item domain.LineItem, columns []string) (Row, error) {
	row := make(Row, len(columns))

	var (
		product domain.Product
		found   bool
		loaded  bool
	)
	load := func() error {
		if loaded {
			return nil
		}
		loaded = true
		var err error
		product, found, err = lookupProduct(ctx, f.catalog, item.EffectiveProductID())
		return err
	}

	for _, c := range columns {
		switch c {
		case ColProductID:
			row[c] = formatInt(item.ProductID)
		case ColSKU:
			if err := load(); err != nil {
				return nil, fmt.Errorf("load product %d: %w", item.EffectiveProductID(), err)
			}
			if found {
				row[c] = product.SKU
			} else {
				row[c] = ""
			}
		case ColProductName:
			row[c] = f.productName(item)
		case ColQuantity:
			row[c] = formatFloat(item.Quantity)
		case ColLineTotal:
			row[c] = formatFloat(item.Total)
		case ColLineTax:
			row[c] = formatFloat(item.TotalTax)
		case ColLineSubtotal:
			row[c] = formatFloat(item.Subtotal)
		case ColProductCategories:
			if err := load(); err != nil {
				return nil, fmt.Errorf("load product %d: %w", item.EffectiveProductID(), err)
			}
			if !found {
				row[c] = ""
				continue
			}
			terms, err := f.catalog.TermNames(ctx, product.TaxonomyOwnerID(), domain.TaxonomyProductCategory)
			if err != nil {
				return nil, fmt.Errorf("load categories of product %d: %w", product.TaxonomyOwnerID(), err)
			}
			row[c] = strings.Join(terms, listSeparator)
		default:
			row[c] = item.Meta[c]
		}
	}
	return row, nil
}

func (f *Formatter) productName(item domain.LineItem) string {
	if !f.stripVariationNames || item.VariationID <= 0 {
		return item.Name
	}
	return StripVariationQualifier(item.Name)
}

// StripVariationQualifier turns "Parent - Attr1, Attr2" into "Parent"
func StripVariationQualifier(name string) string {
	if i := strings.LastIndex(name, " - "); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return name
}
