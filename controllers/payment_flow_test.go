package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripplekay/KayCutts/config"
	"github.com/tripplekay/KayCutts/models"
	"github.com/tripplekay/KayCutts/mpesa"
	"github.com/tripplekay/KayCutts/store"
)

// stubGateway fakes the Daraja token and STK push endpoints.
func stubGateway(t *testing.T, checkoutID string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "expires_in": "3600"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CheckoutRequestID":   checkoutID,
			"MerchantRequestID":   "mr_1",
			"CustomerMessage":     "Success. Request accepted for processing",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupTest(t *testing.T, checkoutID string) (*gin.Engine, store.BookingStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	bookings := store.NewFileStore(filepath.Join(dir, "bookings.json"))

	gw := stubGateway(t, checkoutID)
	Init(Deps{
		Store: bookings,
		Mpesa: mpesa.NewClient(mpesa.Config{
			ConsumerKey:    "key",
			ConsumerSecret: "secret",
			Shortcode:      "174379",
			Passkey:        "passkey",
			CallbackURL:    "https://example.com/api/mpesa-callback",
			BaseURL:        gw.URL,
		}),
		Cfg: &config.Config{
			QuizClaims:            filepath.Join(dir, "quiz_claims.json"),
			RazorpayWebhookSecret: "whsec",
		},
	})

	router := gin.New()
	router.POST("/api/bookings", CreateBooking)
	router.GET("/api/bookings", ListBookings)
	router.GET("/api/bookings/:orderId", GetBooking)
	router.POST("/api/bookings/:orderId/mark-paid", MarkBookingPaid)
	router.POST("/api/mpesa-initiate", InitiateMpesaPayment)
	router.POST("/api/mpesa-callback", MpesaCallback)
	router.POST("/api/card-webhook", CardWebhook)
	router.POST("/api/quiz-claim", SubmitQuizClaim)
	router.GET("/health", HealthCheck)
	return router, bookings
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createJaneBooking(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, "POST", "/api/bookings", gin.H{
		"name":         "Jane Wanjiku",
		"email":        "jane@example.com",
		"phone":        "254712345678",
		"service_name": "Fade + Beard Trim",
		"date":         "2026-09-01",
		"time":         "10:30",
		"price":        800,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Booking models.Booking `json:"booking"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Booking.OrderID)
	return resp.Data.Booking.OrderID
}

func stkCallbackBody(checkoutID string, resultCode int, receipt string) gin.H {
	cb := gin.H{
		"MerchantRequestID": "mr_1",
		"CheckoutRequestID": checkoutID,
		"ResultCode":        resultCode,
		"ResultDesc":        "The service request is processed successfully.",
	}
	if resultCode == 0 {
		cb["CallbackMetadata"] = gin.H{
			"Item": []gin.H{
				{"Name": "Amount", "Value": 800},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
				{"Name": "PhoneNumber", "Value": 254712345678},
			},
		}
	}
	return gin.H{"Body": gin.H{"stkCallback": cb}}
}

func TestCreateBooking(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	orderID := createJaneBooking(t, router)
	assert.Contains(t, orderID, "ORD-")

	w := doJSON(router, "GET", "/api/bookings/"+orderID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"payment_status":"pending"`)
}

func TestCreateBookingMissingFields(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	w := doJSON(router, "POST", "/api/bookings", gin.H{
		"name":  "Jane Wanjiku",
		"email": "jane@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "phone")
	assert.Contains(t, w.Body.String(), "service_name")
	assert.Contains(t, w.Body.String(), "date")
}

func TestGetBookingNotFound(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	w := doJSON(router, "GET", "/api/bookings/ORD-missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInitiateRejectsLocalPhoneFormat(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	w := doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "0712345678",
		"amount":  800,
		"orderId": orderID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "InvalidPhoneFormat")
}

func TestInitiateAttachesCheckoutRequest(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	w := doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "254712345678",
		"amount":  800,
		"orderId": orderID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), `"checkoutRequestId":"ws_CO_1"`)

	b, err := bookings.GetByCheckoutRequestID("ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, orderID, b.OrderID)
}

func TestInitiateAcceptsStringAmount(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	w := doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "254712345678",
		"amount":  "800",
		"orderId": orderID,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCallbackSettlesBooking(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	w := doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "254712345678",
		"amount":  800,
		"orderId": orderID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, "POST", "/api/mpesa-callback", stkCallbackBody("ws_CO_1", 0, "R123"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)

	b, err := bookings.GetByOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
	assert.Equal(t, "R123", b.MpesaTransactionCode)
}

func TestDuplicateCallbackLeavesSettlementUntouched(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "254712345678",
		"amount":  800,
		"orderId": orderID,
	})
	doJSON(router, "POST", "/api/mpesa-callback", stkCallbackBody("ws_CO_1", 0, "R123"))

	// Second delivery carries a different receipt; it must be ignored.
	w := doJSON(router, "POST", "/api/mpesa-callback", stkCallbackBody("ws_CO_1", 0, "R456"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)

	b, err := bookings.GetByOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, "R123", b.MpesaTransactionCode)
}

func TestFailedCallbackLeavesBookingPending(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	doJSON(router, "POST", "/api/mpesa-initiate", gin.H{
		"phone":   "254712345678",
		"amount":  800,
		"orderId": orderID,
	})

	// ResultCode 1032: request cancelled by user.
	w := doJSON(router, "POST", "/api/mpesa-callback", stkCallbackBody("ws_CO_1", 1032, ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)

	b, err := bookings.GetByOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, b.PaymentStatus)
}

func TestUnmatchedCallbackIsAckedAndDeadLettered(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")

	w := doJSON(router, "POST", "/api/mpesa-callback", stkCallbackBody("ws_CO_orphan", 0, "R777"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)

	events, err := bookings.ListUnmatchedCallbacks()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ws_CO_orphan", events[0].CheckoutRequestID)
	assert.Equal(t, "R777", events[0].Receipt)
}

func TestMalformedCallbackIsAcked(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	req := httptest.NewRequest("POST", "/api/mpesa-callback", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ResultCode":0`)
}

func TestManualMarkPaidIsIdempotent(t *testing.T) {
	router, bookings := setupTest(t, "ws_CO_1")
	orderID := createJaneBooking(t, router)

	w := doJSON(router, "POST", fmt.Sprintf("/api/bookings/%s/mark-paid", orderID), gin.H{
		"transaction_receipt": "MANUAL-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"already_paid":false`)

	b, err := bookings.GetByOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, b.PaymentStatus)
	// The mpesa code defaults to the receipt when not given explicitly.
	assert.Equal(t, "MANUAL-1", b.MpesaTransactionCode)

	w = doJSON(router, "POST", fmt.Sprintf("/api/bookings/%s/mark-paid", orderID), gin.H{
		"transaction_receipt": "MANUAL-2",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"already_paid":true`)

	b, err = bookings.GetByOrderID(orderID)
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-1", b.MpesaTransactionCode)
}

func TestListBookingsNewestFirst(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")
	createJaneBooking(t, router)
	createJaneBooking(t, router)

	w := doJSON(router, "GET", "/api/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	w := doJSON(router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.Contains(t, w.Body.String(), `"time"`)
}

func TestQuizClaim(t *testing.T) {
	router, _ := setupTest(t, "ws_CO_1")

	w := doJSON(router, "POST", "/api/quiz-claim", gin.H{
		"name":  "Jane Wanjiku",
		"email": "jane@example.com",
		"prize": "Free Beard Trim",
		"score": 5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Free Beard Trim")

	w = doJSON(router, "POST", "/api/quiz-claim", gin.H{"email": "jane@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
