// Package notify sends order confirmations by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/wneessen/go-mail"

	"shop_back_end/internal/config"
	"shop_back_end/internal/models"
	"shop_back_end/internal/services"
)

type Mailer struct {
	from   string
	client *mail.Client
}

// New returns a Mailer when SMTP is configured and a no-op notifier
// otherwise.
func New(cfg config.Config, logger *slog.Logger) (services.Notifier, error) {
	if cfg.SMTPHost == "" {
		return NopNotifier{log: logger}, nil
	}
	m, err := NewMailer(cfg)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func NewMailer(cfg config.Config) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &Mailer{from: cfg.SMTPFrom, client: client}, nil
}

func (m *Mailer) OrderPlaced(ctx context.Context, to string, order *models.Order) error {
	msg, err := m.confirmation(to, order)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation for order %s: %w", order.ID, err)
	}
	return nil
}

func (m *Mailer) confirmation(to string, order *models.Order) (*mail.Msg, error) {
	body, err := RenderConfirmation(order)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, err
	}
	if err := msg.To(to); err != nil {
		return nil, err
	}
	msg.Subject("Order confirmation " + order.ID.String())
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Order confirmation</title></head>
<body style="font-family: Arial, sans-serif;">
	<h2>Thanks for your order</h2>
	<p>Order <strong>{{.ID}}</strong> is {{.Status}}.</p>
	<table style="border-collapse: collapse;">
		<thead><tr><th>Product</th><th>Quantity</th><th>Unit price</th></tr></thead>
		<tbody>
		{{- range .Items}}
			<tr><td>{{.ProductID}}</td><td>{{.Quantity}}</td><td>{{.UnitPrice.StringFixed 2}}</td></tr>
		{{- end}}
		</tbody>
	</table>
	<p>Total: <strong>{{.Total.StringFixed 2}}</strong></p>
</body>
</html>`))

// RenderConfirmation builds the HTML body of the confirmation email.
func RenderConfirmation(order *models.Order) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, order); err != nil {
		return "", fmt.Errorf("render confirmation: %w", err)
	}
	return buf.String(), nil
}

// NopNotifier logs instead of sending.
type NopNotifier struct {
	log *slog.Logger
}

func (n NopNotifier) OrderPlaced(ctx context.Context, to string, order *models.Order) error {
	if n.log != nil {
		n.log.DebugContext(ctx, "smtp disabled, confirmation not sent", "order_id", order.ID)
	}
	return nil
}
