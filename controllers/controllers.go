package controllers

import (
	"github.com/tripplekay/KayCutts/config"
	"github.com/tripplekay/KayCutts/kai"
	"github.com/tripplekay/KayCutts/mpesa"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/store"
)

// Deps wires the handlers to their collaborators. main assembles it once
// at startup; tests swap in stubbed stores and gateway clients.
type Deps struct {
	Store    store.BookingStore
	Mpesa    *mpesa.Client
	Notifier *notify.Dispatcher
	Kai      *kai.Client
	Cfg      *config.Config
}

var deps Deps

// Init installs the controller dependencies.
func Init(d Deps) {
	deps = d
}

func enqueueNotification(m notify.Message) {
	if deps.Notifier != nil {
		deps.Notifier.Enqueue(m)
	}
}
