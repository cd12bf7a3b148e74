// Package email sends the order confirmation mail. Delivery is best-effort:
// callers log failures and move on, they never fail an already-paid order
// because of a mail problem.
package email

import (
	"fmt"
	"net/smtp"

	"github.com/shopspring/decimal"
)

type Conf struct {
	host     string
	port     string
	username string
	password string
	from     string
}

func NewConf(host, port, username, password, from string) (*Conf, error) {
	if host == "" || port == "" || from == "" {
		return nil, fmt.Errorf("smtp host, port and from address must be set")
	}
	return &Conf{host: host, port: port, username: username, password: password, from: from}, nil
}

func (c *Conf) SendOrderConfirmation(to, orderNumber string, amount decimal.Decimal) error {
	if to == "" {
		return fmt.Errorf("no recipient address")
	}

	subject := "Order Confirmation"
	body := fmt.Sprintf("Thank you for your order! Your order number is %s and the total charged is %s. We are processing it now.",
		orderNumber, amount.StringFixed(2))

	message := []byte("To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", c.username, c.password, c.host)
	if err := smtp.SendMail(c.host+":"+c.port, auth, c.from, []string{to}, message); err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}
	return nil
}
