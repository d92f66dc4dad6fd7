package services

import (
	"errors"
	"testing"

	"lojaonline/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func TestEmailService_DisabledWithoutCredentials(t *testing.T) {
	es := NewEmailService(SMTPConfig{Host: "smtp.example.com", Port: 587})
	assert.False(t, es.Enabled())
	assert.NoError(t, es.SendWelcomeEmail("ana@example.com", "Ana"))
	assert.NoError(t, es.SendOrderConfirmation("ana@example.com", "Ana", 1, &models.CheckoutSummary{}))
}

func TestEmailService_Welcome(t *testing.T) {
	sender := &fakeSender{}
	es := NewEmailServiceWithSender(sender, "loja@example.com")

	require.NoError(t, es.SendWelcomeEmail("ana@example.com", "Ana"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"loja@example.com"}, sender.sent[0].GetHeader("From"))
}

func TestEmailService_OrderConfirmation(t *testing.T) {
	sender := &fakeSender{}
	es := NewEmailServiceWithSender(sender, "loja@example.com")
	p := models.Product{ID: 1, Name: "Caneca", Price: decimal.RequireFromString("50.00")}
	summary := &models.CheckoutSummary{
		Lines: []models.CheckoutLine{models.NewCheckoutLine(p, 2)},
		Total: decimal.RequireFromString("100.00"),
	}

	require.NoError(t, es.SendOrderConfirmation("ana@example.com", "Ana", 17, summary))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"Pedido #17 confirmado - Loja Online"}, sender.sent[0].GetHeader("Subject"))

	body := orderConfirmationBody("Ana", 17, summary)
	assert.Contains(t, body, "Caneca")
	assert.Contains(t, body, "Pedido #17")
}

func TestEmailService_SendError(t *testing.T) {
	es := NewEmailServiceWithSender(&fakeSender{err: errors.New("smtp down")}, "loja@example.com")
	assert.ErrorContains(t, es.SendWelcomeEmail("ana@example.com", "Ana"), "smtp down")
}
