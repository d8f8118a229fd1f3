package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/store"
	"github.com/tripplekay/KayCutts/utils"
)

// POST /api/card/create-order
func CreateCardOrder(c *gin.Context) {
	utils.LogInfo("CreateCardOrder called")

	if deps.Cfg == nil || deps.Cfg.RazorpayKey == "" || deps.Cfg.RazorpaySecret == "" {
		utils.ServiceUnavailable(c, "Card payments are not configured")
		return
	}

	var req struct {
		OrderID string `json:"orderId"`
		Amount  int    `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request body", err.Error())
		return
	}
	if req.OrderID == "" || req.Amount < 1 {
		utils.BadRequest(c, "orderId and a positive amount are required", nil)
		return
	}

	booking, err := deps.Store.GetByOrderID(req.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.NotFound(c, "Booking not found")
			return
		}
		utils.LogError("Failed to fetch booking %s: %v", req.OrderID, err)
		utils.InternalServerError(c, "Failed to fetch booking", err.Error())
		return
	}

	client := razorpay.NewClient(deps.Cfg.RazorpayKey, deps.Cfg.RazorpaySecret)
	order, err := client.Order.Create(map[string]interface{}{
		"amount":   req.Amount * 100, // minor units
		"currency": "KES",
		"receipt":  req.OrderID,
		"notes": map[string]interface{}{
			"order_id": req.OrderID,
		},
	}, nil)
	if err != nil {
		utils.LogError("Failed to create card order for %s: %v", req.OrderID, err)
		utils.ServiceUnavailable(c, "Card payment service unavailable, please try again later")
		return
	}

	cardOrderID, _ := order["id"].(string)
	if cardOrderID != "" {
		if aerr := deps.Store.AttachCardOrder(booking.OrderID, cardOrderID); aerr != nil {
			utils.LogError("Failed to attach card order %s to booking %s: %v", cardOrderID, booking.OrderID, aerr)
		}
	}
	utils.LogInfo("Card order %s created for booking %s", cardOrderID, booking.OrderID)

	utils.Success(c, "Card order created", gin.H{
		"order_id": cardOrderID,
		"amount":   order["amount"],
		"currency": order["currency"],
		"key":      deps.Cfg.RazorpayKey,
	})
}

// verifyWebhookSignature checks the HMAC-SHA256 hex signature the
// provider computes over the raw request body.
func verifyWebhookSignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// POST /api/card-webhook
func CardWebhook(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		utils.LogError("Failed to read card webhook body: %v", err)
		utils.BadRequest(c, "Invalid webhook body", nil)
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if !verifyWebhookSignature(raw, signature, deps.Cfg.RazorpayWebhookSecret) {
		utils.LogError("Card webhook signature verification failed")
		utils.BadRequest(c, "Invalid webhook signature", nil)
		return
	}

	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID     string `json:"id"`
					Amount int    `json:"amount"`
					Notes  struct {
						OrderID string `json:"order_id"`
					} `json:"notes"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		utils.LogError("Malformed card webhook payload: %v", err)
		utils.BadRequest(c, "Malformed webhook payload", nil)
		return
	}

	switch event.Event {
	case "payment.captured":
		orderID := event.Payload.Payment.Entity.Notes.OrderID
		if orderID == "" {
			utils.LogError("Card webhook payment.captured carries no order_id, ignoring")
			break
		}
		booking, transitioned, err := deps.Store.MarkPaid(orderID, store.Settlement{
			PaymentIntentID: event.Payload.Payment.Entity.ID,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.LogError("Card webhook references unknown order %s", orderID)
				break
			}
			utils.LogError("Failed to settle card payment for %s: %v", orderID, err)
			break
		}
		if !transitioned {
			utils.LogInfo("Duplicate card webhook for order %s, already paid", orderID)
			break
		}
		utils.LogInfo("Booking %s settled via card payment %s", orderID, event.Payload.Payment.Entity.ID)
		enqueueNotification(notify.Message{
			Email:        booking.Email,
			EmailSubject: "Payment Received - Tripple Kay Cuts",
			EmailBody: fmt.Sprintf(
				"<p>Hi %s,</p><p>Your card payment for %s (order %s) has been received.</p><p>See you on %s at %s!</p>",
				booking.Name, booking.ServiceName, booking.OrderID, booking.Date, booking.Time,
			),
			Phone: booking.Phone,
			SMSText: fmt.Sprintf(
				"Hi %s, card payment received for %s. See you on %s at %s. - Tripple Kay Cuts",
				booking.Name, booking.ServiceName, booking.Date, booking.Time,
			),
		})
		if deps.Cfg != nil && deps.Cfg.GoogleCalendarID != "" && deps.Cfg.CalendarOnPayment {
			CreateCalendarEvent(booking)
		}
	case "payment.failed":
		utils.LogInfo("Card payment failed for order %s", event.Payload.Payment.Entity.Notes.OrderID)
	default:
		utils.LogInfo("Ignoring card webhook event %s", event.Event)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
