package orderhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"auctionhouse/internal/auctionerrors"
	"auctionhouse/internal/http/identity"
	"auctionhouse/internal/models"
)

// fakeSettlementService serves a single canned order and records transitions.
type fakeSettlementService struct {
	order       models.Order
	transitions []string
}

func (f *fakeSettlementService) Settle(context.Context, string) error { return nil }

func (f *fakeSettlementService) Get(_ context.Context, orderID string) (models.Order, error) {
	if orderID != f.order.ID {
		return models.Order{}, auctionerrors.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeSettlementService) ListByBuyer(_ context.Context, buyerID string) ([]models.Order, error) {
	if buyerID == f.order.BuyerID {
		return []models.Order{f.order}, nil
	}
	return nil, nil
}

func (f *fakeSettlementService) Pay(_ context.Context, orderID, _, _ string) (models.Order, error) {
	f.transitions = append(f.transitions, "pay")
	return f.order, nil
}

func (f *fakeSettlementService) Ship(_ context.Context, orderID string) (models.Order, error) {
	f.transitions = append(f.transitions, "ship")
	return f.order, nil
}

func (f *fakeSettlementService) Deliver(_ context.Context, orderID string) (models.Order, error) {
	f.transitions = append(f.transitions, "deliver")
	return f.order, nil
}

func (f *fakeSettlementService) Cancel(_ context.Context, orderID string) (models.Order, error) {
	f.transitions = append(f.transitions, "cancel")
	return f.order, nil
}

func newFixture() (*fakeSettlementService, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	svc := &fakeSettlementService{
		order: models.Order{
			ID: "o1", ListingID: "l1", BuyerID: "buyer1", SellerID: "seller1",
			TotalAmount: 130, Status: models.OrderPending,
			CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		},
	}
	r := gin.New()
	r.Use(identity.Middleware())
	New(svc).Register(r)
	return svc, r
}

func do(r *gin.Engine, method, path, userID, role, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFulfilmentAuthorization(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		userID     string
		role       string
		wantCode   int
		transition string
	}{
		{"seller_ships", "/OrdersApi/o1/ship", "seller1", "Seller", http.StatusOK, "ship"},
		{"buyer_cannot_ship", "/OrdersApi/o1/ship", "buyer1", "Buyer", http.StatusForbidden, ""},
		{"stranger_cannot_ship", "/OrdersApi/o1/ship", "mallory", "Buyer", http.StatusForbidden, ""},
		{"admin_ships", "/OrdersApi/o1/ship", "root", "Admin", http.StatusOK, "ship"},
		{"buyer_delivers", "/OrdersApi/o1/deliver", "buyer1", "Buyer", http.StatusOK, "deliver"},
		{"seller_cannot_deliver", "/OrdersApi/o1/deliver", "seller1", "Seller", http.StatusForbidden, ""},
		{"buyer_cancels", "/OrdersApi/o1/cancel", "buyer1", "Buyer", http.StatusOK, "cancel"},
		{"seller_cancels", "/OrdersApi/o1/cancel", "seller1", "Seller", http.StatusOK, "cancel"},
		{"stranger_cannot_cancel", "/OrdersApi/o1/cancel", "mallory", "Buyer", http.StatusForbidden, ""},
		{"unauthenticated", "/OrdersApi/o1/ship", "", "", http.StatusUnauthorized, ""},
		{"unknown_order", "/OrdersApi/nope/ship", "seller1", "Seller", http.StatusNotFound, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, r := newFixture()
			w := do(r, http.MethodPost, tc.path, tc.userID, tc.role, "")

			require.Equal(t, tc.wantCode, w.Code)
			if tc.transition == "" {
				require.Empty(t, svc.transitions, "service must not be reached")
			} else {
				require.Equal(t, []string{tc.transition}, svc.transitions)
			}
		})
	}
}

func TestByBuyer_OwnOrdersOnly(t *testing.T) {
	_, r := newFixture()

	w := do(r, http.MethodGet, "/OrdersApi/buyer/buyer1", "buyer1", "Buyer", "")
	require.Equal(t, http.StatusOK, w.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 1)

	// Another buyer cannot read buyer1's orders; an admin can.
	w = do(r, http.MethodGet, "/OrdersApi/buyer/buyer1", "mallory", "Buyer", "")
	require.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/OrdersApi/buyer/buyer1", "root", "Admin", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProcessPayment_BuyerOnly(t *testing.T) {
	body := `{"orderId":"o1","paymentMethod":"CreditCard","cardNumber":"4111 1111 1111 1111"}`

	svc, r := newFixture()
	w := do(r, http.MethodPost, "/PaymentsApi/process", "buyer1", "Buyer", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"pay"}, svc.transitions)

	svc, r = newFixture()
	w = do(r, http.MethodPost, "/PaymentsApi/process", "seller1", "Seller", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, svc.transitions)

	svc, r = newFixture()
	w = do(r, http.MethodPost, "/PaymentsApi/process", "mallory", "Buyer", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, svc.transitions)
}
