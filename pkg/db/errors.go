package db

import "strings"

// sqlite reports unique failures by column ("UNIQUE constraint failed:
// payment_events.processor_event_id"), never by index name, so each named
// constraint also matches its column form.
var uniqueConstraintColumns = map[string]string{
	"ux_products_slug":                  "products.slug",
	"ux_cart_records_buyer":             "cart_records.buyer_id",
	"ux_cart_items_line":                "cart_items.line_key",
	"ux_orders_order_number":            "orders.order_number",
	"ux_orders_human_number":            "orders.human_number",
	"ux_orders_payment_authorization":   "orders.payment_authorization_id",
	"ux_payment_events_processor_event": "payment_events.processor_event_id",
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
// With a constraintName it matches that specific constraint; otherwise any
// duplicate-key error counts. Matching is textual: gorm surfaces driver
// errors as strings. Postgres names the violated index in the message;
// sqlite names the column, covered by the table above.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		if strings.Contains(msg, constraintName) {
			return true
		}
		column, ok := uniqueConstraintColumns[constraintName]
		return ok && strings.Contains(msg, "UNIQUE constraint failed") &&
			strings.Contains(msg, column)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
