package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/foodking/internal/lifecycle"
	"github.com/roach88/foodking/internal/model"
)

const timeLayout = "2006-01-02 15:04"

func money(d decimal.Decimal) string {
	return model.FormatCurrency(d)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func renderMenu(w io.Writer, items []model.MenuItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No dishes match.")
		return
	}
	const row = "%-18s %-22s %-10s %7s  %s\n"
	fmt.Fprintf(w, row, "ID", "NAME", "CATEGORY", "PRICE", "AVAILABLE")
	for _, it := range items {
		fmt.Fprintf(w, row, it.ID, truncate(it.Name, 22), it.Category, money(it.Price), yesNo(it.Available))
	}
}

func renderMenuItem(w io.Writer, it model.MenuItem) {
	fmt.Fprintf(w, "%s (%s)\n", it.Name, it.ID)
	fmt.Fprintf(w, "Category:    %s\n", it.Category)
	fmt.Fprintf(w, "Price:       %s\n", money(it.Price))
	fmt.Fprintf(w, "Available:   %s\n", yesNo(it.Available))
	if it.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", it.Description)
	}
	if it.Image != "" {
		fmt.Fprintf(w, "Image:       %s\n", it.Image)
	}
}

// cartView is the cart as shown to the customer.
type cartView struct {
	Items    []model.CartItem `json:"items"`
	Count    int              `json:"count"`
	Subtotal decimal.Decimal  `json:"subtotal"`
	Tax      decimal.Decimal  `json:"tax"`
	Total    decimal.Decimal  `json:"total"`
}

func renderCart(w io.Writer, v cartView) {
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	const row = "%-18s %-22s %3s %7s %8s\n"
	fmt.Fprintf(w, row, "ID", "ITEM", "QTY", "PRICE", "TOTAL")
	for _, it := range v.Items {
		fmt.Fprintf(w, row, it.ID, truncate(it.Name, 22), fmt.Sprint(it.Quantity), money(it.Price), money(it.LineTotal()))
	}
	fmt.Fprintln(w)
	const sum = "%-10s %8s\n"
	fmt.Fprintf(w, sum, "Subtotal", money(v.Subtotal))
	fmt.Fprintf(w, sum, "Tax (5%)", money(v.Tax))
	fmt.Fprintf(w, sum, "Total", money(v.Total))
}

func renderOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "No orders found.")
		return
	}
	const row = "%-36s  %-16s  %-18s %5s %8s  %-16s  %s\n"
	fmt.Fprintf(w, row, "ID", "STATUS", "CUSTOMER", "ITEMS", "TOTAL", "PLACED", "NEXT")
	for _, o := range orders {
		fmt.Fprintf(w, row,
			o.ID,
			o.Status,
			truncate(o.CustomerName, 18),
			fmt.Sprint(o.ItemCount()),
			money(o.TotalAmount),
			o.CreatedAt.Format(timeLayout),
			lifecycle.ActionLabel(o.Status),
		)
	}
}

func renderOrder(w io.Writer, o model.Order) {
	fmt.Fprintf(w, "Order %s\n", o.ID)
	fmt.Fprintf(w, "Status:   %s\n", o.Status)
	fmt.Fprintf(w, "Customer: %s, %s\n", o.CustomerName, o.CustomerPhone)
	fmt.Fprintf(w, "Address:  %s\n", o.DeliveryAddress)
	fmt.Fprintf(w, "Payment:  %s\n", o.PaymentMethod)
	for _, l := range o.Lines {
		fmt.Fprintf(w, "  %3d x %-22s %8s\n", l.Quantity, truncate(l.Name, 22), money(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))))
	}
	fmt.Fprintf(w, "Total:    %s (incl. %s tax)\n", money(o.TotalAmount), money(o.Tax))
}

// renderTracking draws the customer progress bar.
func renderTracking(w io.Writer, o model.Order) {
	fmt.Fprintf(w, "Order %s\n", o.ID)
	if o.Status == model.StatusRejected {
		fmt.Fprintln(w, "This order was rejected by the restaurant.")
		return
	}
	step := lifecycle.Progress(o.Status)
	var parts []string
	for i, s := range model.Statuses[:5] {
		mark := " "
		if i <= step {
			mark = "x"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", mark, s))
	}
	fmt.Fprintln(w, strings.Join(parts, "  "))
}

func renderDashboard(w io.Writer, d model.Dashboard) {
	const row = "%-16s %8s\n"
	fmt.Fprintf(w, row, "Today's orders", fmt.Sprint(d.Stats.TodayOrders))
	fmt.Fprintf(w, row, "Pending", fmt.Sprint(d.Stats.PendingOrders))
	fmt.Fprintf(w, row, "Delivered today", fmt.Sprint(d.Stats.DeliveredToday))
	fmt.Fprintf(w, row, "Revenue today", money(d.Stats.TodayRevenue))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent orders")
	renderOrders(w, d.Recent)
}

func renderUpdated(w io.Writer, at time.Time) {
	fmt.Fprintf(w, "\nUpdated %s\n", at.Local().Format("15:04:05"))
}
