package notify

import (
	"github.com/tripplekay/KayCutts/utils"
)

// Message is one best-effort notification. Either channel may be blank;
// blank channels are skipped.
type Message struct {
	Email        string
	EmailSubject string
	EmailBody    string

	Phone   string
	SMSText string
}

// Dispatcher is an in-process fire-and-forget queue. Enqueue never blocks
// the caller: when the buffer is full the message is dropped with a log
// line. Delivery failures are logged and never surfaced.
type Dispatcher struct {
	mailer Mailer
	texter Texter
	queue  chan Message
	done   chan struct{}
}

// NewDispatcher starts the delivery worker.
func NewDispatcher(mailer Mailer, texter Texter, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{
		mailer: mailer,
		texter: texter,
		queue:  make(chan Message, buffer),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue hands a message to the worker without waiting on delivery.
func (d *Dispatcher) Enqueue(m Message) {
	select {
	case d.queue <- m:
	default:
		utils.LogError("[Notify] queue full, dropping notification for %s / %s", m.Email, m.Phone)
	}
}

// Close drains the queue and stops the worker.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for m := range d.queue {
		d.deliver(m)
	}
}

func (d *Dispatcher) deliver(m Message) {
	if m.Email != "" && d.mailer != nil {
		if err := d.mailer.Send(m.Email, m.EmailSubject, m.EmailBody); err != nil {
			utils.LogError("[Email] Failed to send email to %s: %v", m.Email, err)
		} else {
			utils.LogInfo("[Email] Sent to %s", m.Email)
		}
	}
	if m.Phone != "" && d.texter != nil {
		if err := d.texter.Send(m.Phone, m.SMSText); err != nil {
			utils.LogError("[SMS] Failed to send notification to %s: %v", m.Phone, err)
		} else {
			utils.LogInfo("[SMS] Message sent to %s", m.Phone)
		}
	}
}
