package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer sends order receipts over SMTP. Without a host it only logs.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewMailer(host string, port int, user, password, from string) *Mailer {
	m := &Mailer{from: from, logger: util.GetLogger()}
	if host == "" {
		m.logger.Info("SMTP host not set, order receipts disabled")
		return m
	}
	if m.from == "" {
		m.from = user
	}
	m.dialer = gomail.NewDialer(host, port, user, password)
	return m
}

// Enabled reports whether mail actually goes out
func (m *Mailer) Enabled() bool {
	return m.dialer != nil
}

// SendOrderReceipt mails the buyer a summary of a placed order
func (m *Mailer) SendOrderReceipt(ctx context.Context, event *models.OrderPlacedEvent) error {
	if !m.Enabled() {
		m.logger.Debug("Receipt skipped", zap.Int64("order_id", event.OrderID))
		return nil
	}
	if event.UserEmail == "" {
		return fmt.Errorf("order %d has no recipient", event.OrderID)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", event.UserEmail)
	msg.SetHeader("Subject", receiptSubject(event))
	msg.SetBody("text/html", receiptBody(event))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send receipt for order %d: %w", event.OrderID, err)
	}

	m.logger.Info("Receipt sent", zap.Int64("order_id", event.OrderID), zap.String("to", event.UserEmail))
	return nil
}

func receiptSubject(event *models.OrderPlacedEvent) string {
	return fmt.Sprintf("Your order #%d", event.OrderID)
}

func receiptBody(event *models.OrderPlacedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Thanks for your order #%d</h2>", event.OrderID)
	b.WriteString("<table><tr><th>Product</th><th>Count</th><th>Price</th></tr>")
	for _, item := range event.Items {
		fmt.Fprintf(&b, "<tr><td>#%d</td><td>%d</td><td>%s</td></tr>",
			item.ProductID, item.Count, item.Price.StringFixed(2))
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p>Total: %s</p>", event.CartTotal.StringFixed(2))
	fmt.Fprintf(&b, "<p>Paid: %s %s</p>", event.Amount.StringFixed(2), html.EscapeString(strings.ToUpper(event.Currency)))
	return b.String()
}
