// Package notify delivers best-effort booking confirmations over email and
// SMS. Nothing in this package may ever affect payment state: failures are
// logged and swallowed, and missing provider configuration degrades to a
// no-op log line.
package notify

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripplekay/KayCutts/utils"
	"gopkg.in/gomail.v2"
)

// Mailer delivers a single email.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// Texter delivers a single SMS.
type Texter interface {
	Send(phone, message string) error
}

// SMTPMailer sends HTML mail through a plain SMTP account.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	if m.Host == "" || m.Username == "" {
		utils.LogInfo("[Email] Email not configured. Skipping email to: %s", to)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}

// AfricasTalkingTexter sends SMS through the Africa's Talking messaging
// API, the common provider for Kenyan numbers.
type AfricasTalkingTexter struct {
	APIKey   string
	Username string
	SenderID string
	BaseURL  string

	client *http.Client
}

func NewAfricasTalkingTexter(apiKey, username, senderID, baseURL string) *AfricasTalkingTexter {
	return &AfricasTalkingTexter{
		APIKey:   apiKey,
		Username: username,
		SenderID: senderID,
		BaseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *AfricasTalkingTexter) Send(phone, message string) error {
	if t.APIKey == "" {
		utils.LogInfo("[SMS] SMS notifications not configured. Message would be sent to %s", phone)
		return nil
	}

	form := url.Values{}
	form.Set("username", t.Username)
	form.Set("to", phone)
	form.Set("message", message)
	if t.SenderID != "" {
		form.Set("from", t.SenderID)
	}

	req, err := http.NewRequest(http.MethodPost, t.BaseURL+"/version1/messaging", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("ApiKey", t.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %v", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("SMS API returned status %d", resp.StatusCode)
	}
	return nil
}
