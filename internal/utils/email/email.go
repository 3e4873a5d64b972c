package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ledgerbill/invoice-service/internal/billing"
	"github.com/ledgerbill/invoice-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendReminder sends an invoice reminder worded for the ladder tone.
// dayOffset is the rung that fired: negative before the due date, zero on
// it, positive after.
func (s *Sender) SendReminder(to, customerName, invoiceNumber string, dueDate time.Time, balance decimal.Decimal, currency string, tone billing.Tone, dayOffset int) error {
	e := email.NewEmail()
	e.From = s.cfg.EmailFrom
	e.To = []string{to}

	var timing string
	switch {
	case dayOffset < 0:
		timing = fmt.Sprintf("is due in %d day(s), on %s", -dayOffset, dueDate.Format("2006-01-02"))
	case dayOffset == 0:
		timing = "is due today"
	default:
		timing = fmt.Sprintf("was due on %s and is now %d day(s) overdue", dueDate.Format("2006-01-02"), dayOffset)
	}

	body := fmt.Sprintf("Dear %s,\n\n", customerName)
	switch tone {
	case billing.ToneFriendly:
		e.Subject = fmt.Sprintf("A friendly reminder about invoice %s", invoiceNumber)
		body += fmt.Sprintf(
			"Just a quick note: invoice %s for %s %s.\n"+
				"If you have already sent the payment, please disregard this message.\n",
			invoiceNumber, s.formatAmount(balance, currency), timing,
		)
	case billing.ToneUrgent:
		e.Subject = fmt.Sprintf("URGENT: invoice %s requires your attention", invoiceNumber)
		body += fmt.Sprintf(
			"Invoice %s for %s %s.\n"+
				"Please settle the outstanding balance immediately to avoid further late fees.\n",
			invoiceNumber, s.formatAmount(balance, currency), timing,
		)
	default:
		e.Subject = fmt.Sprintf("Payment reminder: invoice %s", invoiceNumber)
		body += fmt.Sprintf(
			"This is a reminder that invoice %s for %s %s.\n"+
				"Please arrange payment at your earliest convenience.\n",
			invoiceNumber, s.formatAmount(balance, currency), timing,
		)
	}
	body += "\nBest regards,\nThe Billing Team"
	e.Text = []byte(body)

	return s.send(e, to)
}

// SendLateFeeNotice informs the customer that a late fee was applied
func (s *Sender) SendLateFeeNotice(to, customerName, invoiceNumber string, fee, newTotal decimal.Decimal, currency string, capped bool, daysOverdue int) error {
	e := email.NewEmail()
	e.From = s.cfg.EmailFrom
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Late fee applied to invoice %s", invoiceNumber)

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Invoice %s is %d day(s) overdue. A late fee of %s has been applied,\n"+
			"bringing the amount due to %s.\n",
		customerName, invoiceNumber, daysOverdue,
		s.formatAmount(fee, currency), s.formatAmount(newTotal, currency),
	)
	if capped {
		body += "The fee has reached the maximum allowed for this invoice and will not grow further.\n"
	} else {
		body += "Further fees may accrue until the balance is settled.\n"
	}
	body += "\nBest regards,\nThe Billing Team"
	e.Text = []byte(body)

	return s.send(e, to)
}

// SendInvoiceIssued notifies the customer that a new invoice was issued
func (s *Sender) SendInvoiceIssued(to, customerName, invoiceNumber string, total decimal.Decimal, currency string, dueDate time.Time) error {
	e := email.NewEmail()
	e.From = s.cfg.EmailFrom
	e.To = []string{to}
	e.Subject = fmt.Sprintf("New invoice %s", invoiceNumber)

	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"A new invoice %s for %s has been issued to you.\n"+
			"Payment is due by %s.\n"+
			"\nBest regards,\nThe Billing Team",
		customerName, invoiceNumber, s.formatAmount(total, currency), dueDate.Format("2006-01-02"),
	)
	e.Text = []byte(body)

	return s.send(e, to)
}

func (s *Sender) send(e *email.Email, to string) error {
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}

// formatAmount renders a money amount at its currency's precision
func (s *Sender) formatAmount(amount decimal.Decimal, currency string) string {
	precision, err := billing.CurrencyPrecision(currency)
	if err != nil {
		precision = 2
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(precision), currency)
}
