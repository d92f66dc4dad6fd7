package services

import (
	"fmt"
	"log"
	"strings"

	"lojaonline/internal/models"

	"gopkg.in/gomail.v2"
)

const storeName = "Loja Online"

// SMTPConfig holds the outgoing mail settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// Sender delivers a composed message. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailService sends customer notifications. Without SMTP credentials it
// only logs what would have been sent.
type EmailService struct {
	sender Sender
	from   string
}

func NewEmailService(cfg SMTPConfig) *EmailService {
	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	if from == "" {
		from = "noreply@lojaonline.com.br"
	}
	if cfg.User == "" || cfg.Pass == "" {
		log.Println("EmailService - SMTP credentials not set, email delivery disabled")
		return &EmailService{from: from}
	}
	return &EmailService{
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
		from:   from,
	}
}

// NewEmailServiceWithSender is used when the transport is provided by the caller.
func NewEmailServiceWithSender(sender Sender, from string) *EmailService {
	return &EmailService{sender: sender, from: from}
}

// Enabled reports whether messages are actually delivered.
func (es *EmailService) Enabled() bool {
	return es.sender != nil
}

func (es *EmailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", es.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	return es.sender.DialAndSend(m)
}

// SendWelcomeEmail greets a newly registered customer.
func (es *EmailService) SendWelcomeEmail(to, name string) error {
	if !es.Enabled() {
		log.Printf("EmailService.SendWelcomeEmail - delivery disabled, skipping %s", to)
		return nil
	}

	subject := "Bem-vindo(a) - " + storeName
	body := fmt.Sprintf(`
		<h2>Bem-vindo(a)!</h2>
		<p>Olá %s,</p>
		<p>Seu cadastro na %s foi concluído. Agora você já pode fazer suas compras.</p>
		<br>
		<p>Atenciosamente,<br>%s</p>
	`, name, storeName, storeName)

	if err := es.send(to, subject, body); err != nil {
		log.Printf("EmailService.SendWelcomeEmail - failed: %v", err)
		return err
	}
	log.Printf("EmailService.SendWelcomeEmail - sent to %s", to)
	return nil
}

// SendOrderConfirmation mails the order summary after checkout.
func (es *EmailService) SendOrderConfirmation(to, name string, orderID int64, summary *models.CheckoutSummary) error {
	if !es.Enabled() {
		log.Printf("EmailService.SendOrderConfirmation - delivery disabled, order %d", orderID)
		return nil
	}

	subject := fmt.Sprintf("Pedido #%d confirmado - %s", orderID, storeName)
	if err := es.send(to, subject, orderConfirmationBody(name, orderID, summary)); err != nil {
		log.Printf("EmailService.SendOrderConfirmation - failed: %v", err)
		return err
	}
	log.Printf("EmailService.SendOrderConfirmation - order %d sent to %s", orderID, to)
	return nil
}

func orderConfirmationBody(name string, orderID int64, summary *models.CheckoutSummary) string {
	var rows strings.Builder
	for _, l := range summary.Lines {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>\n",
			l.Product.Name, l.Quantity, models.FormatBRL(l.Subtotal))
	}
	return fmt.Sprintf(`
		<h2>Pedido #%d recebido</h2>
		<p>Olá %s,</p>
		<p>Recebemos seu pedido e o pagamento foi aprovado.</p>
		<table>
		<tr><th>Produto</th><th>Qtd</th><th>Subtotal</th></tr>
		%s</table>
		<p><strong>Total: %s</strong></p>
		<br>
		<p>Atenciosamente,<br>%s</p>
	`, orderID, name, rows.String(), models.FormatBRL(summary.Total), storeName)
}
