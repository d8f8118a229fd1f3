package controllers

import (
	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/utils"
)

// CreateCalendarEvent pushes a booking onto the shop's Google Calendar.
// Event creation is strictly best-effort; the booking flow never fails
// because of it. Wiring the service account credentials is a deployment
// concern, so an unconfigured calendar is skipped with a log line.
func CreateCalendarEvent(b *models.Booking) {
	if deps.Cfg == nil || deps.Cfg.GoogleCalendarID == "" {
		utils.LogInfo("[Calendar] Calendar not fully configured, skipping event for order %s", b.OrderID)
		return
	}
	// TODO: swap in the Calendar API client once the shop's service
	// account is provisioned.
	utils.LogInfo("[Calendar] Would create event for order %s (%s on %s at %s)", b.OrderID, b.ServiceName, b.Date, b.Time)
}
