package exporter

import (
	"slices"

	"wexport/pkg/contracts/domain"
)

// Order level column identifiers
const (
	ColOrderID         = "order_id"
	ColOrderDate       = "order_date"
	ColCustomerName    = "customer_name"
	ColCustomerEmail   = "customer_email"
	ColBillingPhone    = "billing_phone"
	ColShippingAddress = "shipping_address"
	ColShippingMethod  = "shipping_method"
	ColPaymentMethod   = "payment_method"
	ColOrderStatus     = "order_status"
	ColOrderTotal      = "order_total"
)

// Line item level column identifiers
const (
	ColProductID         = "product_id"
	ColSKU               = "sku"
	ColProductName       = "product_name"
	ColQuantity          = "quantity"
	ColLineTotal         = "line_total"
	ColLineTax           = "line_tax"
	ColLineSubtotal      = "line_subtotal"
	ColProductCategories = "product_categories"
)

var orderVocabulary = []string{
	ColOrderID, ColOrderDate, ColCustomerName, ColCustomerEmail, ColBillingPhone,
	ColShippingAddress, ColShippingMethod, ColPaymentMethod, ColOrderStatus, ColOrderTotal,
}

var itemVocabulary = []string{
	ColProductID, ColSKU, ColProductName, ColQuantity,
	ColLineTotal, ColLineTax, ColLineSubtotal, ColProductCategories,
}

var columnLabels = map[string]string{
	ColOrderID:           "Order ID",
	ColOrderDate:         "Order Date",
	ColCustomerName:      "Customer Name",
	ColCustomerEmail:     "Customer Email",
	ColBillingPhone:      "Billing Phone",
	ColShippingAddress:   "Shipping Address",
	ColShippingMethod:    "Shipping Method",
	ColPaymentMethod:     "Payment Method",
	ColOrderStatus:       "Order Status",
	ColOrderTotal:        "Order Total",
	ColProductID:         "Product ID",
	ColSKU:               "SKU",
	ColProductName:       "Product Name",
	ColQuantity:          "Quantity",
	ColLineTotal:         "Line Total",
	ColLineTax:           "Line Tax",
	ColLineSubtotal:      "Line Subtotal",
	ColProductCategories: "Product Categories",
}

// ColumnInfo is one selectable column with its display label
type ColumnInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// ColumnGroup is a labelled section of the column vocabulary
type ColumnGroup struct {
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// AvailableColumns lists the selectable columns grouped for display.
// product_categories is a product field but renders at item level.
func AvailableColumns() []ColumnGroup {
	info := func(ids ...string) []ColumnInfo {
		out := make([]ColumnInfo, 0, len(ids))
		for _, id := range ids {
			out = append(out, ColumnInfo{ID: id, Label: columnLabels[id]})
		}
		return out
	}
	items := slices.DeleteFunc(ItemVocabulary(), func(id string) bool { return id == ColProductCategories })
	return []ColumnGroup{
		{Name: "Order Fields", Columns: info(orderVocabulary...)},
		{Name: "Item Fields", Columns: info(items...)},
		{Name: "Product Fields", Columns: info(ColProductCategories)},
	}
}

// StatusOption is an order status with its display label
type StatusOption struct {
	Status string `json:"status"`
	Label  string `json:"label"`
}

// OrderStatuses returns the store's order statuses, prefixed as stored
func OrderStatuses() []StatusOption {
	return []StatusOption{
		{Status: "wc-pending", Label: "Pending payment"},
		{Status: "wc-processing", Label: "Processing"},
		{Status: "wc-on-hold", Label: "On hold"},
		{Status: "wc-completed", Label: "Completed"},
		{Status: "wc-cancelled", Label: "Cancelled"},
		{Status: "wc-refunded", Label: "Refunded"},
		{Status: "wc-failed", Label: "Failed"},
		{Status: "wc-checkout-draft", Label: "Draft"},
	}
}

var defaultColumns = []string{
	ColOrderID, ColOrderDate, ColCustomerName, ColCustomerEmail, ColBillingPhone,
	ColShippingAddress, ColPaymentMethod, ColOrderTotal,
	ColProductID, ColSKU, ColProductName, ColQuantity, ColLineTotal, ColProductCategories,
}

// DefaultColumns returns the column list used when none is selected
func DefaultColumns() []string {
	return slices.Clone(defaultColumns)
}

// OrderVocabulary returns every order level column identifier
func OrderVocabulary() []string {
	return slices.Clone(orderVocabulary)
}

// ItemVocabulary returns every line item level column identifier
func ItemVocabulary() []string {
	return slices.Clone(itemVocabulary)
}

// IsOrderColumn reports whether id belongs to the order vocabulary
func IsOrderColumn(id string) bool {
	return slices.Contains(orderVocabulary, id)
}

// IsItemColumn reports whether id belongs to the line item vocabulary
func IsItemColumn(id string) bool {
	return slices.Contains(itemVocabulary, id)
}

// SplitColumns partitions a selection into order and item columns, keeping the
// selection order. Identifiers outside both vocabularies are dropped.
func SplitColumns(columns []string) (orderCols, itemCols []string) {
	for _, c := range columns {
		switch {
		case IsOrderColumn(c):
			orderCols = append(orderCols, c)
		case IsItemColumn(c):
			itemCols = append(itemCols, c)
		}
	}
	return orderCols, itemCols
}

// Layout is the fixed column order of one export run
type Layout struct {
	OrderColumns  []string
	ItemColumns   []string
	CustomColumns []string
}

// NewLayout derives the layout from a normalized config
func NewLayout(cfg domain.ExportConfig) Layout {
	orderCols, itemCols := SplitColumns(cfg.Columns)
	return Layout{
		OrderColumns:  orderCols,
		ItemColumns:   itemCols,
		CustomColumns: cfg.CustomColumnNames(),
	}
}

// Columns returns order columns ++ item columns ++ custom columns
func (l Layout) Columns() []string {
	all := make([]string, 0, len(l.OrderColumns)+len(l.ItemColumns)+len(l.CustomColumns))
	all = append(all, l.OrderColumns...)
	all = append(all, l.ItemColumns...)
	all = append(all, l.CustomColumns...)
	return all
}

// Row maps a column identifier to its cell value
type Row map[string]string

// Values returns the cells in column order, "" for absent columns
func (r Row) Values(columns []string) []string {
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = r[c]
	}
	return values
}

// Fill returns a copy of r restricted to columns, absent columns set to ""
func (r Row) Fill(columns []string) Row {
	filled := make(Row, len(columns))
	for _, c := range columns {
		filled[c] = r[c]
	}
	return filled
}

func (r Row) merge(other Row) Row {
	out := make(Row, len(r)+len(other))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}
