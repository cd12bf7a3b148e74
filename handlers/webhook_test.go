package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-api/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
)

const testWebhookSecret = "whsec_test_secret"

type fakeOrderStore struct {
	mu        sync.Mutex
	byIntent  map[string]orders.Order
	createErr error
	lookupErr error
	nextID    int64
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{byIntent: map[string]orders.Order{}}
}

func (f *fakeOrderStore) Create(_ context.Context, no orders.NewOrder) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return orders.Order{}, f.createErr
	}
	if _, ok := f.byIntent[no.PaymentIntentID]; ok {
		return orders.Order{}, orders.ErrDuplicatePaymentIntent
	}
	f.nextID++
	order := orders.Order{
		ID:              f.nextID,
		UserID:          no.UserID,
		PaymentIntentID: no.PaymentIntentID,
		OrderNumber:     fmt.Sprintf("ORD%03d", f.nextID),
		Status:          orders.StatusConfirmed,
		ProductIDs:      no.ProductIDs,
		Amount:          no.Amount,
		Shipping:        no.Shipping,
		Address:         no.Address,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	f.byIntent[no.PaymentIntentID] = order
	return order, nil
}

func (f *fakeOrderStore) GetByPaymentIntentID(_ context.Context, paymentIntentID string) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return orders.Order{}, f.lookupErr
	}
	order, ok := f.byIntent[paymentIntentID]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byIntent)
}

func (f *fakeOrderStore) GetByID(context.Context, int64) (orders.Order, error) {
	return orders.Order{}, orders.ErrNotFound
}
func (f *fakeOrderStore) ListByUser(context.Context, int64) ([]orders.Order, error) { return nil, nil }
func (f *fakeOrderStore) ListAll(context.Context) ([]orders.Order, error)          { return nil, nil }
func (f *fakeOrderStore) UpdateStatus(context.Context, int64, string) error        { return nil }
func (f *fakeOrderStore) MonthlyIncome(context.Context) ([]orders.MonthlyIncome, error) {
	return nil, nil
}

type fakeProducer struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakeProducer) ProduceMessage(_ string, _, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, value)
	return nil
}

func (f *fakeProducer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeMailer) SendOrderConfirmation(to, _ string, _ decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp connection refused")
	}
	f.sent = append(f.sent, to)
	return nil
}

func webhookRouter(store orders.Store, producer Producer, mailer Mailer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, nil, nil, nil, store, producer, mailer, nil, Config{
		WebhookSecret: testWebhookSecret,
		SuccessURL:    "https://shop.test/success",
		CancelURL:     "https://shop.test/cancel",
	})
	r := gin.New()
	r.POST("/webhook", h.Webhook)
	return r
}

// signPayload builds the Stripe-Signature header the way Stripe does:
// an HMAC-SHA256 of "<timestamp>.<payload>" keyed with the endpoint secret.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func completedSessionPayload(paymentIntentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"object": "checkout.session",
				"payment_intent": %q,
				"amount_total": 5999,
				"customer_details": {
					"name": "Ada Shopper",
					"email": "ada@example.com",
					"address": {
						"line1": "1 Main St",
						"city": "Springfield",
						"postal_code": "12345",
						"country": "US"
					}
				},
				"metadata": {
					"cart_item_ids": "7:red-M,9:L",
					"quantities": "2,1",
					"user_id": "42",
					"product_total": "50.00",
					"shipping_cost": "9.99"
				}
			}
		}
	}`, stripe.APIVersion, paymentIntentID))
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signature)
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookCreatesOrder(t *testing.T) {
	store := newFakeOrderStore()
	producer := &fakeProducer{}
	mailer := &fakeMailer{}
	r := webhookRouter(store, producer, mailer)

	payload := completedSessionPayload("pi_test_1")
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "received")
	require.Equal(t, 1, store.count())

	order := store.byIntent["pi_test_1"]
	assert.Equal(t, int64(42), order.UserID)
	assert.Equal(t, []int64{7, 9}, order.ProductIDs)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("59.99")), "got %s", order.Amount)
	assert.True(t, order.Shipping.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, orders.StatusConfirmed, order.Status)
	assert.Equal(t, "Ada Shopper", order.Address.Name)
	assert.Equal(t, "ada@example.com", order.Address.Email)

	// One stock event per product line, published asynchronously.
	assert.Eventually(t, func() bool { return producer.count() == 2 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"ada@example.com"}, mailer.sent)
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	store := newFakeOrderStore()
	r := webhookRouter(store, nil, nil)

	payload := completedSessionPayload("pi_test_2")
	signature := signPayload(payload, testWebhookSecret, time.Now())

	first := postWebhook(r, payload, signature)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postWebhook(r, payload, signature)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "already processed")

	assert.Equal(t, 1, store.count())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := newFakeOrderStore()
	r := webhookRouter(store, nil, nil)

	payload := completedSessionPayload("pi_test_3")
	w := postWebhook(r, payload, signPayload(payload, "whsec_wrong_secret", time.Now()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.count())
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	store := newFakeOrderStore()
	r := webhookRouter(store, nil, nil)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": %q,
		"type": "payment_intent.created",
		"data": {"object": {"id": "pi_test_4", "object": "payment_intent"}}
	}`, stripe.APIVersion))
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.count())
}

func TestWebhookMailFailureDoesNotFailDelivery(t *testing.T) {
	store := newFakeOrderStore()
	mailer := &fakeMailer{fail: true}
	r := webhookRouter(store, nil, mailer)

	payload := completedSessionPayload("pi_test_5")
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.count())
}

func TestWebhookPersistenceFailureAsksForRetry(t *testing.T) {
	store := newFakeOrderStore()
	store.createErr = errors.New("database is down")
	r := webhookRouter(store, nil, nil)

	payload := completedSessionPayload("pi_test_6")
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 0, store.count())
}

// The unique index is the backstop when two deliveries of the same event race
// past the lookup; the loser must still get a 200.
func TestWebhookDuplicateInsertTreatedAsProcessed(t *testing.T) {
	store := newFakeOrderStore()
	store.createErr = orders.ErrDuplicatePaymentIntent
	r := webhookRouter(store, nil, nil)

	payload := completedSessionPayload("pi_test_7")
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "already processed")
}

func TestWebhookRejectsMalformedMetadata(t *testing.T) {
	store := newFakeOrderStore()
	r := webhookRouter(store, nil, nil)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_3",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_2",
				"object": "checkout.session",
				"payment_intent": "pi_test_8",
				"amount_total": 1000,
				"metadata": {"user_id": "42"}
			}
		}
	}`, stripe.APIVersion))
	w := postWebhook(r, payload, signPayload(payload, testWebhookSecret, time.Now()))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, store.count())
}
