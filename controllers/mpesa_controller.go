package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tripplekay/KayCutts/middleware"
	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/mpesa"
	"github.com/tripplekay/KayCutts/notify"
	"github.com/tripplekay/KayCutts/store"
	"github.com/tripplekay/KayCutts/utils"
)

// amountString renders the loosely typed amount field the frontends
// send (number or quoted string) into the string form the gateway
// client validates.
func amountString(v interface{}) string {
	switch a := v.(type) {
	case string:
		return a
	case float64:
		if a == float64(int64(a)) {
			return strconv.FormatInt(int64(a), 10)
		}
		return strconv.FormatFloat(a, 'f', -1, 64)
	case json.Number:
		return a.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", a)
	}
}

func respondSTKError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mpesa.ErrMissingFields):
		middleware.RecordPaymentInitiated("invalid")
		utils.BadRequest(c, "Missing required fields: phone, amount, orderId", nil)
	case errors.Is(err, mpesa.ErrInvalidPhone):
		middleware.RecordPaymentInitiated("invalid")
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "InvalidPhoneFormat",
			"message": err.Error(),
		})
	case errors.Is(err, mpesa.ErrInvalidAmount):
		middleware.RecordPaymentInitiated("invalid")
		utils.BadRequest(c, err.Error(), nil)
	default:
		gw, ok := mpesa.AsGatewayError(err)
		if !ok {
			middleware.RecordPaymentInitiated("error")
			utils.LogError("STK push failed: %v", err)
			utils.InternalServerError(c, "Failed to initiate payment", err.Error())
			return
		}
		switch gw.Kind {
		case mpesa.KindRejected:
			middleware.RecordPaymentInitiated("rejected")
			utils.LogError("STK push rejected by gateway: %s", gw.Description)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "PaymentRejected",
				"message": gw.Description,
			})
		default:
			middleware.RecordPaymentInitiated("error")
			utils.LogError("M-Pesa gateway failure: %v", gw)
			utils.InternalServerError(c, "Failed to initiate payment. Verify Daraja credentials and try again.", gw.Description)
		}
	}
}

// POST /api/mpesa-initiate
func InitiateMpesaPayment(c *gin.Context) {
	utils.LogInfo("InitiateMpesaPayment called")

	var req struct {
		Phone   string      `json:"phone"`
		Amount  interface{} `json:"amount"`
		OrderID string      `json:"orderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid STK push request: %v", err)
		utils.BadRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := deps.Mpesa.InitiateSTKPush(c.Request.Context(), mpesa.STKPushRequest{
		Phone:   req.Phone,
		Amount:  amountString(req.Amount),
		OrderID: req.OrderID,
	})
	if err != nil {
		respondSTKError(c, err)
		return
	}
	middleware.RecordPaymentInitiated("accepted")
	utils.LogInfo("STK push accepted for order %s, checkout request %s", req.OrderID, result.CheckoutRequestID)

	// Correlate the push with the booking so the callback can find it.
	// A missing booking is not fatal: the compat endpoint initiates
	// payments that were never booked through this backend.
	if err := deps.Store.AttachCheckoutRequest(req.OrderID, result.CheckoutRequestID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.LogInfo("No booking found for order %s, callback will be dead-lettered", req.OrderID)
		} else {
			utils.LogError("Failed to attach checkout request %s to order %s: %v", result.CheckoutRequestID, req.OrderID, err)
		}
	}

	enqueueNotification(notify.Message{
		Phone: result.Phone,
		SMSText: fmt.Sprintf(
			"Payment request of KES %d sent to your phone for order %s. Enter your M-Pesa PIN to complete. - Tripple Kay Cuts",
			result.Amount, req.OrderID,
		),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           result.CustomerMessage,
		"checkoutRequestId": result.CheckoutRequestID,
		"merchantRequestId": result.MerchantRequestID,
	})
}

// POST /api/mpesa_payment
//
// Legacy initiation route kept for older frontends. It takes only a
// phone and an amount, fabricates an order id, and records a minimal
// booking so the callback has something to settle against.
func MpesaPaymentCompat(c *gin.Context) {
	utils.LogInfo("MpesaPaymentCompat called")

	// Older clients post either JSON or an urlencoded form.
	var phone, amt string
	if strings.Contains(c.ContentType(), "json") {
		var req struct {
			Phone  string      `json:"phone"`
			Amount interface{} `json:"amount"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request body", err.Error())
			return
		}
		phone, amt = req.Phone, amountString(req.Amount)
	} else {
		phone, amt = c.PostForm("phone"), c.PostForm("amount")
	}

	orderID := fmt.Sprintf("MPESA-%d", time.Now().UnixMilli())

	result, err := deps.Mpesa.InitiateSTKPush(c.Request.Context(), mpesa.STKPushRequest{
		Phone:   phone,
		Amount:  amt,
		OrderID: orderID,
	})
	if err != nil {
		respondSTKError(c, err)
		return
	}
	middleware.RecordPaymentInitiated("accepted")

	price, _ := strconv.Atoi(amt)
	booking := &models.Booking{
		OrderID:       orderID,
		Name:          "M-Pesa Customer",
		Phone:         result.Phone,
		ServiceName:   "Direct payment",
		Price:         price,
		PaymentMethod: models.PaymentMethodMpesa,
	}
	if created, cerr := deps.Store.Create(booking); cerr != nil && created == nil {
		utils.LogError("Failed to record direct payment booking %s: %v", orderID, cerr)
	} else if aerr := deps.Store.AttachCheckoutRequest(orderID, result.CheckoutRequestID); aerr != nil {
		utils.LogError("Failed to attach checkout request for direct payment %s: %v", orderID, aerr)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           result.CustomerMessage,
		"orderId":           orderID,
		"checkoutRequestId": result.CheckoutRequestID,
		"merchantRequestId": result.MerchantRequestID,
	})
}

// POST /api/mpesa-query
func QueryMpesaPayment(c *gin.Context) {
	var req struct {
		CheckoutRequestID string `json:"checkoutRequestId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CheckoutRequestID == "" {
		utils.BadRequest(c, "checkoutRequestId is required", nil)
		return
	}

	result, err := deps.Mpesa.QuerySTKPush(c.Request.Context(), req.CheckoutRequestID)
	if err != nil {
		utils.LogError("STK query failed for %s: %v", req.CheckoutRequestID, err)
		utils.ServiceUnavailable(c, "Payment status unavailable, please try again later")
		return
	}

	c.JSON(http.StatusOK, result)
}

type stkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// POST /api/mpesa-callback
//
// The gateway retries callbacks that are not acknowledged with
// ResultCode 0, so every path out of this handler acks. Processing
// failures are logged and dead-lettered instead of surfaced.
func MpesaCallback(c *gin.Context) {
	ack := func() {
		c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Success"})
	}
	defer func() {
		if r := recover(); r != nil {
			utils.LogErrorWithStack(fmt.Errorf("panic in mpesa callback: %v", r), debug.Stack())
			c.JSON(http.StatusOK, gin.H{"ResultCode": 1, "ResultDesc": "Error processing callback"})
		}
	}()

	raw, err := c.GetRawData()
	if err != nil {
		utils.LogError("Failed to read callback body: %v", err)
		middleware.RecordCallbackProcessed("malformed")
		ack()
		return
	}

	var env stkCallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		utils.LogError("Malformed callback payload: %v", err)
		middleware.RecordCallbackProcessed("malformed")
		ack()
		return
	}

	cb := env.Body.StkCallback
	utils.LogInfo("M-Pesa callback received: checkout %s, result %d (%s)", cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)

	var receipt, phone, amount string
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			receipt = fmt.Sprintf("%v", item.Value)
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case float64:
				phone = strconv.FormatInt(int64(v), 10)
			default:
				phone = fmt.Sprintf("%v", v)
			}
		case "Amount":
			amount = amountString(item.Value)
		}
	}

	if cb.ResultCode != 0 {
		// Cancelled or failed on the handset. Nothing to settle.
		utils.LogInfo("Payment not completed for checkout %s: %s", cb.CheckoutRequestID, cb.ResultDesc)
		middleware.RecordCallbackProcessed("failed")
		ack()
		return
	}

	booking, err := deps.Store.GetByCheckoutRequestID(cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.LogError("No booking matches checkout request %s, dead-lettering callback", cb.CheckoutRequestID)
			middleware.RecordCallbackProcessed("unmatched")
			deadLetter(cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc, receipt, amount, phone, raw)
		} else {
			utils.LogError("Store lookup failed for checkout %s: %v", cb.CheckoutRequestID, err)
			middleware.RecordCallbackProcessed("error")
		}
		ack()
		return
	}

	_, transitioned, err := deps.Store.MarkPaid(booking.OrderID, store.Settlement{
		TransactionReceipt:   receipt,
		MpesaTransactionCode: receipt,
	})
	if err != nil {
		utils.LogError("Failed to mark booking %s paid from callback: %v", booking.OrderID, err)
		middleware.RecordCallbackProcessed("error")
		ack()
		return
	}

	if !transitioned {
		utils.LogInfo("Duplicate callback for checkout %s, booking %s already paid", cb.CheckoutRequestID, booking.OrderID)
		middleware.RecordCallbackProcessed("duplicate")
		ack()
		return
	}

	utils.LogInfo("Booking %s settled via M-Pesa, receipt %s", booking.OrderID, receipt)
	middleware.RecordCallbackProcessed("settled")

	enqueueNotification(notify.Message{
		Email:        booking.Email,
		EmailSubject: "Payment Received - Tripple Kay Cuts",
		EmailBody: fmt.Sprintf(
			"<p>Hi %s,</p><p>We have received your payment of KES %s for %s (order %s).</p><p>M-Pesa receipt: %s</p><p>See you on %s at %s!</p>",
			booking.Name, amount, booking.ServiceName, booking.OrderID, receipt, booking.Date, booking.Time,
		),
		Phone: booking.Phone,
		SMSText: fmt.Sprintf(
			"Hi %s, payment of KES %s received for %s. Receipt: %s. See you on %s at %s. - Tripple Kay Cuts",
			booking.Name, amount, booking.ServiceName, receipt, booking.Date, booking.Time,
		),
	})

	if deps.Cfg != nil && deps.Cfg.GoogleCalendarID != "" && deps.Cfg.CalendarOnPayment {
		CreateCalendarEvent(booking)
	}

	ack()
}

func deadLetter(checkoutID string, resultCode int, resultDesc, receipt, amount, phone string, raw []byte) {
	event := &models.UnmatchedCallback{
		CheckoutRequestID: checkoutID,
		ResultCode:        resultCode,
		ResultDesc:        resultDesc,
		Receipt:           receipt,
		Amount:            amount,
		Phone:             phone,
		RawPayload:        string(raw),
	}
	if err := deps.Store.SaveUnmatchedCallback(event); err != nil {
		utils.LogError("Failed to dead-letter callback for checkout %s: %v", checkoutID, err)
	}
}
