package notify

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

type recordingTexter struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (t *recordingTexter) Send(phone, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, phone)
	return t.err
}

func TestDispatcherDeliversBothChannels(t *testing.T) {
	mailer := &recordingMailer{}
	texter := &recordingTexter{}
	d := NewDispatcher(mailer, texter, 8)

	d.Enqueue(Message{
		Email:        "jane@example.com",
		EmailSubject: "Payment Received",
		EmailBody:    "<p>Thanks!</p>",
		Phone:        "254712345678",
		SMSText:      "Payment received",
	})
	d.Close()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0])
	require.Len(t, texter.sent, 1)
	assert.Equal(t, "254712345678", texter.sent[0])
}

func TestDispatcherSkipsBlankChannels(t *testing.T) {
	mailer := &recordingMailer{}
	texter := &recordingTexter{}
	d := NewDispatcher(mailer, texter, 8)

	d.Enqueue(Message{Phone: "254712345678", SMSText: "SMS only"})
	d.Enqueue(Message{Email: "jane@example.com", EmailSubject: "Email only"})
	d.Close()

	assert.Equal(t, []string{"jane@example.com"}, mailer.sent)
	assert.Equal(t, []string{"254712345678"}, texter.sent)
}

func TestDispatcherSwallowsDeliveryErrors(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	texter := &recordingTexter{err: errors.New("sms api down")}
	d := NewDispatcher(mailer, texter, 8)

	// One channel failing must not stop the other, and Close must still
	// drain cleanly.
	d.Enqueue(Message{
		Email:   "jane@example.com",
		Phone:   "254712345678",
		SMSText: "hi",
	})
	d.Enqueue(Message{Phone: "254700000001", SMSText: "again"})
	d.Close()

	assert.Len(t, mailer.sent, 1)
	assert.Len(t, texter.sent, 2)
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	texter := &recordingTexter{}
	d := NewDispatcher(nil, texter, 32)

	for i := 0; i < 10; i++ {
		d.Enqueue(Message{Phone: "254712345678", SMSText: "ping"})
	}
	d.Close()

	assert.Len(t, texter.sent, 10)
}
