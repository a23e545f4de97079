package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/orrn/ticketspool/internal/pkg/clock"
)

const (
	// Orders older than this print with the urgent banner on kitchen tickets.
	urgentThreshold = 15 * time.Minute

	receiptTimeLayout = "02/01/2006 15:04"
	shortIDLength     = 6

	contentTypeEscPos = "application/vnd.escpos"
	contentTypeHTML   = "text/html; charset=utf-8"
)

var orderTypeLabels = map[OrderType]string{
	OrderTypeDineIn:   "DINE-IN",
	OrderTypeDelivery: "DELIVERY",
	OrderTypeTakeout:  "TAKEOUT",
}

var validStatuses = map[OrderStatus]bool{
	OrderStatusPending:   true,
	OrderStatusPreparing: true,
	OrderStatusReady:     true,
	OrderStatusDelivered: true,
}

type RestaurantInfo struct {
	Name    string
	Address string
	Phone   string
}

// ReceiptRenderer is what the print queue needs from a renderer.
type ReceiptRenderer interface {
	Render(order Order, kind ReceiptKind, cfg PrinterConfig) (Payload, error)
}

type Renderer struct {
	restaurant RestaurantInfo
	money      *MoneyFormatter
	clock      clock.Clock
	escpos     *EscPosGenerator
	html       *HTMLGenerator
}

func NewRenderer(restaurant RestaurantInfo, money *MoneyFormatter, clk clock.Clock) *Renderer {
	return &Renderer{
		restaurant: restaurant,
		money:      money,
		clock:      clk,
		escpos:     NewEscPosGenerator(),
		html:       NewHTMLGenerator(),
	}
}

// Render validates order and produces the payload for cfg's transport. It
// never returns a partial payload.
func (r *Renderer) Render(order Order, kind ReceiptKind, cfg PrinterConfig) (Payload, error) {
	order, err := normalizeOrder(order)
	if err != nil {
		return Payload{}, err
	}

	var layout *receiptLayout
	switch kind {
	case KitchenTicket:
		layout = r.kitchenTicket(order)
	case CustomerReceipt:
		layout = r.customerReceipt(order)
	default:
		return Payload{}, newRenderError("kind", fmt.Sprintf("unknown receipt kind %q", kind))
	}

	cfg = withDefaults(cfg)
	switch cfg.Transport {
	case TransportSerial:
		data, err := r.escpos.Generate(layout, cfg)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Transport: TransportSerial, ContentType: contentTypeEscPos, Data: data}, nil
	case TransportNative:
		data, err := r.html.Generate(layout, cfg)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Transport: TransportNative, ContentType: contentTypeHTML, Data: data}, nil
	default:
		return Payload{}, newConfigError("transport", fmt.Sprintf("unknown transport %q", cfg.Transport))
	}
}

// IsUrgent reports whether the order has been waiting longer than the
// kitchen's urgency threshold at the given instant.
func IsUrgent(order Order, now time.Time) bool {
	return now.Sub(order.CreatedAt) > urgentThreshold
}

func (r *Renderer) kitchenTicket(order Order) *receiptLayout {
	l := &receiptLayout{title: "Kitchen " + shortID(order.ID)}

	if r.restaurant.Name != "" {
		l.text(r.restaurant.Name, centered, bold)
	}
	l.text("KITCHEN", centered, bold, large)
	l.rule()
	l.text(orderHeading(order), bold, large)
	if order.TableNumber != "" {
		l.text("Table: "+order.TableNumber, bold)
	}
	if order.CustomerName != "" {
		l.text("Customer: " + order.CustomerName)
	}
	l.text("Date: " + order.CreatedAt.Format(receiptTimeLayout))
	if IsUrgent(order, r.clock.Now()) {
		l.blank()
		l.text("*** URGENT ***", centered, bold, inverted)
	}
	l.rule()

	itemCount := 0
	for _, item := range order.Items {
		itemCount += item.Quantity
		l.text(fmt.Sprintf("%dx %s", item.Quantity, item.Name), bold, large)
		if item.Notes != "" {
			l.text("   Note: " + item.Notes)
		}
	}
	l.rule()

	l.text(fmt.Sprintf("Total items: %d", itemCount), bold)
	if order.EstimatedTime > 0 {
		l.text(fmt.Sprintf("Estimated time: %d min", order.EstimatedTime))
	}
	l.blank()
	l.text("AWAITING PREPARATION", centered, bold)
	l.cut()
	return l
}

func (r *Renderer) customerReceipt(order Order) *receiptLayout {
	l := &receiptLayout{title: "Receipt " + shortID(order.ID)}

	if r.restaurant.Name != "" {
		l.text(r.restaurant.Name, centered, bold, large)
	}
	if r.restaurant.Address != "" {
		l.text(r.restaurant.Address, centered)
	}
	if r.restaurant.Phone != "" {
		l.text("Tel: "+r.restaurant.Phone, centered)
	}
	l.rule()

	l.text(orderHeading(order), bold)
	l.text("Date: " + order.CreatedAt.Format(receiptTimeLayout))
	if order.TableNumber != "" {
		l.text("Table: " + order.TableNumber)
	}
	if order.CustomerName != "" {
		l.text("Customer: " + order.CustomerName)
	}
	if order.CustomerPhone != "" {
		l.text("Phone: " + order.CustomerPhone)
	}
	if order.Type == OrderTypeDelivery && order.CustomerAddress != "" {
		l.text("Address: " + order.CustomerAddress)
	}
	l.rule()

	var subtotal float64
	for _, item := range order.Items {
		lineTotal := item.Price * float64(item.Quantity)
		subtotal += lineTotal
		l.row(fmt.Sprintf("%dx %s", item.Quantity, item.Name), r.money.Format(lineTotal))
		if item.Notes != "" {
			l.text("   Note: " + item.Notes)
		}
	}
	l.rule()

	total := order.Total
	if total == 0 {
		total = subtotal
	}
	l.row("SUBTOTAL", r.money.Format(subtotal))
	l.row("TOTAL", r.money.Format(total), bold, large)
	l.rule()

	l.text(statusBanner(order.Status), centered, bold, large)
	if order.Type == OrderTypeDelivery && order.Status == OrderStatusReady {
		l.text("AWAITING COURIER", centered, bold, inverted)
	}
	l.blank()
	l.text("Thank you for your order!", centered)
	l.cut()
	return l
}

func statusBanner(status OrderStatus) string {
	switch status {
	case OrderStatusReady:
		return "ORDER READY!"
	case OrderStatusDelivered:
		return "DELIVERED!"
	default:
		return "PREPARING..."
	}
}

func orderHeading(order Order) string {
	return orderTypeLabels[order.Type] + " #" + shortID(order.ID)
}

func shortID(id string) string {
	r := []rune(id)
	if len(r) <= shortIDLength {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(string(r[len(r)-shortIDLength:]))
}

func normalizeOrder(order Order) (Order, error) {
	if strings.TrimSpace(order.ID) == "" {
		return order, newRenderError("id", "required")
	}
	if _, ok := orderTypeLabels[order.Type]; !ok {
		return order, newRenderError("type", fmt.Sprintf("unknown order type %q", order.Type))
	}
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	if !validStatuses[order.Status] {
		return order, newRenderError("status", fmt.Sprintf("unknown order status %q", order.Status))
	}
	if order.CreatedAt.IsZero() {
		return order, newRenderError("createdAt", "required")
	}
	if order.Total < 0 {
		return order, newRenderError("total", "must not be negative")
	}
	if len(order.Items) == 0 {
		return order, newRenderError("items", "at least one item is required")
	}
	for i, item := range order.Items {
		switch {
		case strings.TrimSpace(item.Name) == "":
			return order, newRenderError(fmt.Sprintf("items[%d].name", i), "required")
		case item.Quantity < 1:
			return order, newRenderError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		case item.Price < 0:
			return order, newRenderError(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	return order, nil
}
