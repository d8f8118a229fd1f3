package controllers

import (
	"errors"
	"fmt"
	"math"

	"github.com/gin-gonic/gin"
	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/store"
	"github.com/tripplekay/KayCutts/utils"
)

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	utils.LogInfo("CreateBooking called")

	var req struct {
		Name          string  `json:"name"`
		Email         string  `json:"email"`
		Phone         string  `json:"phone"`
		ServiceID     string  `json:"service_id"`
		ServiceName   string  `json:"service_name"`
		Date          string  `json:"date"`
		Time          string  `json:"time"`
		Notes         string  `json:"notes"`
		Price         float64 `json:"price"`
		PaymentMethod string  `json:"payment_method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid booking request: %v", err)
		utils.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	missing := utils.MissingFields(map[string]string{
		"name":         req.Name,
		"email":        req.Email,
		"phone":        req.Phone,
		"service_name": req.ServiceName,
		"date":         req.Date,
		"time":         req.Time,
	}, []string{"name", "email", "phone", "service_name", "date", "time"})
	if len(missing) > 0 {
		utils.LogError("Booking request missing fields: %v", missing)
		utils.BadRequest(c, "Missing required booking fields", gin.H{"missing": missing})
		return
	}

	booking := &models.Booking{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		ServiceID:     req.ServiceID,
		ServiceName:   req.ServiceName,
		Date:          req.Date,
		Time:          req.Time,
		Notes:         req.Notes,
		Price:         int(math.Round(req.Price)),
		PaymentMethod: req.PaymentMethod,
	}

	created, err := deps.Store.Create(booking)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateOrderID) {
			utils.BadRequest(c, "Order id already exists", nil)
			return
		}
		if created == nil {
			utils.LogError("Failed to create booking: %v", err)
			utils.InternalServerError(c, "Failed to create booking", err.Error())
			return
		}
		// Persistence failed but the record exists in memory; the user
		// still gets their booking and the failure is left in the logs.
		utils.LogError("Booking %s created but not persisted: %v", created.OrderID, err)
	}
	utils.LogInfo("Booking created with order id %s", created.OrderID)

	if deps.Cfg != nil && deps.Cfg.GoogleCalendarID != "" && !deps.Cfg.CalendarOnPayment {
		CreateCalendarEvent(created)
	}

	utils.Success(c, "Booking created", gin.H{"booking": created})
}

// GET /api/bookings (admin)
func ListBookings(c *gin.Context) {
	utils.LogInfo("ListBookings called")

	bookings, err := deps.Store.List()
	if err != nil {
		utils.LogError("Failed to list bookings: %v", err)
		utils.InternalServerError(c, "Failed to list bookings", err.Error())
		return
	}

	utils.Success(c, "Bookings retrieved", gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GET /api/bookings/:orderId
func GetBooking(c *gin.Context) {
	orderID := c.Param("orderId")
	utils.LogInfo("GetBooking called for order id %s", orderID)

	booking, err := deps.Store.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "Booking not found")
			return
		}
		utils.LogError("Failed to fetch booking %s: %v", orderID, err)
		utils.InternalServerError(c, "Failed to fetch booking", err.Error())
		return
	}

	utils.Success(c, "Booking retrieved", gin.H{"booking": booking})
}

// POST /api/bookings/:orderId/mark-paid (admin)
//
// Applies the same idempotent paid transition as the automated
// reconcilers; a second call on an already paid booking changes nothing.
func MarkBookingPaid(c *gin.Context) {
	orderID := c.Param("orderId")
	utils.LogInfo("MarkBookingPaid called for order id %s", orderID)

	var req struct {
		PaymentIntentID      string `json:"payment_intent_id"`
		TransactionReceipt   string `json:"transaction_receipt"`
		MpesaTransactionCode string `json:"mpesa_transaction_code"`
	}
	// The settlement body is optional for a manual transition.
	_ = c.ShouldBindJSON(&req)

	code := req.MpesaTransactionCode
	if code == "" {
		code = req.TransactionReceipt
	}

	booking, transitioned, err := deps.Store.MarkPaid(orderID, store.Settlement{
		PaymentIntentID:      req.PaymentIntentID,
		TransactionReceipt:   req.TransactionReceipt,
		MpesaTransactionCode: code,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "Booking not found")
			return
		}
		utils.LogError("Failed to mark booking %s paid: %v", orderID, err)
		utils.InternalServerError(c, "Failed to mark booking paid", err.Error())
		return
	}

	if transitioned {
		utils.LogInfo("Booking %s marked paid manually", orderID)
		if booking.Email != "" || booking.Phone != "" {
			enqueueNotification(notify.Message{
				Email:        booking.Email,
				EmailSubject: "Booking Paid - Tripple Kay Cuts",
				EmailBody:    fmt.Sprintf("<p>Your booking (%s) has been marked as paid. Thank you!</p>", orderID),
				Phone:        booking.Phone,
				SMSText:      fmt.Sprintf("Hi %s, your booking %s is confirmed. Thank you!", booking.Name, orderID),
			})
		}
		if deps.Cfg != nil && deps.Cfg.GoogleCalendarID != "" && deps.Cfg.CalendarOnPayment {
			CreateCalendarEvent(booking)
		}
	} else {
		utils.LogInfo("Booking %s was already paid, manual transition is a no-op", orderID)
	}

	utils.Success(c, "Booking marked as paid", gin.H{
		"booking":      booking,
		"already_paid": !transitioned,
	})
}

// GET /api/admin/unmatched-callbacks (admin)
//
// Exposes the dead-letter records kept for callbacks that matched no
// booking, so they can be reconciled by hand.
func ListUnmatchedCallbacks(c *gin.Context) {
	events, err := deps.Store.ListUnmatchedCallbacks()
	if err != nil {
		utils.LogError("Failed to list unmatched callbacks: %v", err)
		utils.InternalServerError(c, "Failed to list unmatched callbacks", err.Error())
		return
	}

	utils.Success(c, "Unmatched callbacks retrieved", gin.H{
		"callbacks": events,
		"count":     len(events),
	})
}
