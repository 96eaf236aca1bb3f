package order

import (
	"fmt"
	"strings"

	"table-orders/internal/models"
)

// Receipt renders a paid order as a plain-text receipt.
func Receipt(o *models.Order) string {
	var b strings.Builder

	b.WriteString("          RECEIPT\n")
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "Order No: %s\n", o.OrderNumber)
	fmt.Fprintf(&b, "Order ID: %s\n", o.ID)
	fmt.Fprintf(&b, "Table: %d\n", o.TableNumber)
	fmt.Fprintf(&b, "Date: %s\n", o.CreatedAt.Format("2006-01-02 15:04:05"))
	if o.PaymentMethod != "" {
		fmt.Fprintf(&b, "Payment: %s\n", o.PaymentMethod)
	}
	b.WriteString("--------------------------------\n")
	b.WriteString("Items:\n")
	for _, item := range o.Items {
		fmt.Fprintf(&b, "  %s x%d - ₱%.2f\n", item.Item.Name, item.Quantity, item.UnitPrice())
		for _, opt := range item.SelectedOptions {
			fmt.Fprintf(&b, "    + %s\n", opt.Name)
		}
	}
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "Total: ₱%.2f\n", o.Total)

	return b.String()
}
