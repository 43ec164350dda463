package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/bagdasarian/seatkeeper/internal/domain"
	"github.com/bagdasarian/seatkeeper/internal/handler"
	stripepay "github.com/bagdasarian/seatkeeper/internal/payment/stripe"
	"github.com/bagdasarian/seatkeeper/internal/repository/memory"
	"github.com/bagdasarian/seatkeeper/internal/service"
)

const (
	jwtSecret     = "test-secret"
	webhookSecret = "whsec_router"
)

type testApp struct {
	t         *testing.T
	srv       *httptest.Server
	store     *memory.Store
	checkouts *service.MockCheckoutResolver
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()
	store := memory.NewStore()
	checkouts := new(service.MockCheckoutResolver)

	syncer := service.NewCacheSynchronizer(store, logger, nil)
	h := handler.NewHandler(
		service.NewEntitlementService(store, nil),
		service.NewInviteService(store, syncer, nil, service.InviteConfig{BaseURL: "https://app.example.com"}, logger, nil),
		service.NewPaymentService(store, syncer, checkouts, nil, domain.DefaultSeatPolicy(), logger, nil),
		service.NewAccountService(store, syncer),
		stripepay.NewWebhookVerifier(webhookSecret),
		logger,
	)
	router := NewRouter(h, RouterConfig{
		Validator:       handler.NewTokenValidator(jwtSecret, "seatkeeper-test"),
		InviteRateLimit: 100,
		Logger:          logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testApp{t: t, srv: srv, store: store, checkouts: checkouts}
}

func (a *testApp) token(accountID, email string) string {
	a.t.Helper()
	claims := handler.SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    "seatkeeper-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(a.t, err)
	return signed
}

func (a *testApp) do(method, path, token string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.send(req)
}

func (a *testApp) send(req *http.Request) (*http.Response, []byte) {
	a.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(a.t, err)
	return resp, buf.Bytes()
}

func (a *testApp) webhook(payload string) (*http.Response, []byte) {
	a.t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})
	req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/v1/webhooks/stripe", bytes.NewReader(signed.Payload))
	require.NoError(a.t, err)
	req.Header.Set("Stripe-Signature", signed.Header)
	return a.send(req)
}

func checkoutPayload(eventID, sessionID, accountID, product string) string {
	return fmt.Sprintf(`{"id":%q,"object":"event","type":"checkout.session.completed","created":%d,
		"data":{"object":{"id":%q,"object":"checkout.session","payment_status":"paid","metadata":{"account_id":%q,"product":%q}}}}`,
		eventID, time.Now().Unix(), sessionID, accountID, product)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t)

	resp, body := app.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRouter_Authentication(t *testing.T) {
	app := newTestApp(t)

	t.Run("без токена", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/v1/entitlement", "", nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, domain.CodeUnauthenticated, decode[handler.ErrorResponse](t, body).Error.Code)
	})

	t.Run("чужая подпись", func(t *testing.T) {
		claims := handler.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "acc", Issuer: "seatkeeper-test"},
			Email:            "a@example.com",
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)

		resp, _ := app.do(http.MethodGet, "/v1/entitlement", forged, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("токен без срока действия", func(t *testing.T) {
		claims := handler.SessionClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "acc", Issuer: "seatkeeper-test"},
			Email:            "a@example.com",
		}
		endless, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
		require.NoError(t, err)

		resp, body := app.do(http.MethodGet, "/v1/entitlement", endless, nil)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, domain.CodeUnauthenticated, decode[handler.ErrorResponse](t, body).Error.Code)
	})

	t.Run("публичная проверка доступа без токена", func(t *testing.T) {
		resp, body := app.do(http.MethodGet, "/v1/access?gated=true", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, decode[handler.AccessResponse](t, body).Allowed)

		resp, body = app.do(http.MethodGet, "/v1/access?gated=false", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[handler.AccessResponse](t, body).Allowed)

		resp, _ = app.do(http.MethodGet, "/v1/access?gated=maybe", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRouter_TeamFlow(t *testing.T) {
	app := newTestApp(t)
	owner := app.token("owner", "owner@example.com")
	member := app.token("member", "member@example.com")

	_, err := service.NewAccountService(app.store, service.NewCacheSynchronizer(app.store, zap.NewNop(), nil)).
		RegisterAccount(context.Background(), "owner", "owner@example.com", "Olivia")
	require.NoError(t, err)

	resp, body := app.webhook(checkoutPayload("evt_1", "cs_1", "owner", "team"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "applied", decode[handler.WebhookResponse](t, body).Outcome)

	resp, body = app.webhook(checkoutPayload("evt_1", "cs_1", "owner", "team"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "duplicate", decode[handler.WebhookResponse](t, body).Outcome)

	resp, body = app.do(http.MethodGet, "/v1/license", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	license := decode[handler.OwnedLicenseResponse](t, body)
	assert.Equal(t, "team", license.License.Class)
	assert.Equal(t, 4, license.Usage.Available)

	resp, body = app.do(http.MethodPost, "/v1/licenses/"+license.License.LicenseID+"/invites", owner,
		handler.CreateInviteRequest{Email: "member@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	invite := decode[handler.CreateInviteResponse](t, body)
	assert.Equal(t, "invited", invite.Seat.Status)

	resp, body = app.do(http.MethodPost, "/v1/licenses/"+license.License.LicenseID+"/invites", member,
		handler.CreateInviteRequest{Email: "x@example.com"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, domain.CodeNotAuthorized, decode[handler.ErrorResponse](t, body).Error.Code)

	resp, body = app.do(http.MethodPost, "/v1/licenses/"+license.License.LicenseID+"/invites", owner,
		handler.CreateInviteRequest{Email: "member@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, domain.CodeAlreadyInvited, decode[handler.ErrorResponse](t, body).Error.Code)

	resp, body = app.do(http.MethodPost, "/v1/invites/auto-accept", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	auto := decode[handler.AutoAcceptResponse](t, body)
	assert.Equal(t, 1, auto.AcceptedCount)
	assert.Equal(t, []string{"Olivia"}, auto.OwnerNames)

	resp, body = app.do(http.MethodGet, "/v1/entitlement", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ent := decode[handler.EntitlementResponse](t, body)
	assert.True(t, ent.HasAccess)
	assert.Equal(t, "team", ent.Class)
	require.NotNil(t, ent.Membership)

	resp, body = app.do(http.MethodGet, "/v1/memberships", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	memberships := decode[handler.MembershipsResponse](t, body)
	require.Len(t, memberships.Memberships, 1)
	assert.Equal(t, "Olivia", memberships.Memberships[0].OwnerName)

	resp, _ = app.do(http.MethodDelete, "/v1/members/"+ent.Membership.Seat.MemberID, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = app.do(http.MethodGet, "/v1/access?gated=true", member, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[handler.AccessResponse](t, body).Allowed)
}

func TestRouter_AcceptInviteErrors(t *testing.T) {
	app := newTestApp(t)
	other := app.token("other", "other@example.com")

	resp, body := app.do(http.MethodPost, "/v1/invites/accept", other, handler.AcceptInviteRequest{Token: "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, domain.CodeInviteNotFound, decode[handler.ErrorResponse](t, body).Error.Code)

	resp, _ = app.do(http.MethodPost, "/v1/invites/accept", other, map[string]string{"unexpected": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.do(http.MethodPost, "/v1/invites/accept", other, handler.AcceptInviteRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_StripeWebhook(t *testing.T) {
	t.Run("неверная подпись - 400", func(t *testing.T) {
		app := newTestApp(t)
		req, err := http.NewRequest(http.MethodPost, app.srv.URL+"/v1/webhooks/stripe",
			bytes.NewReader([]byte(checkoutPayload("evt", "cs", "acc", "team"))))
		require.NoError(t, err)
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

		resp, body := app.send(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, domain.CodeInvalidSignature, decode[handler.ErrorResponse](t, body).Error.Code)
	})

	t.Run("неизвестный аккаунт - 200 ignored", func(t *testing.T) {
		app := newTestApp(t)

		resp, body := app.webhook(checkoutPayload("evt", "cs", "ghost", "team"))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ignored", decode[handler.WebhookResponse](t, body).Outcome)
	})

	t.Run("сбой Stripe API при возврате - 500", func(t *testing.T) {
		app := newTestApp(t)
		app.checkouts.On("ResolveCheckout", mock.Anything, "pi_1").Return("", fmt.Errorf("stripe down"))
		payload := `{"id":"evt_r","object":"event","type":"charge.refunded","created":1,
			"data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_1"}}}`

		resp, body := app.webhook(payload)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decode[handler.ErrorResponse](t, body).Error.Code)
	})

	t.Run("возврат отключает доступ", func(t *testing.T) {
		app := newTestApp(t)
		require.NoError(t, app.store.Accounts().Upsert(context.Background(), &domain.Account{ID: "owner", Email: "owner@example.com"}))
		owner := app.token("owner", "owner@example.com")

		resp, _ := app.webhook(checkoutPayload("evt_1", "cs_1", "owner", "individual"))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		app.checkouts.On("ResolveCheckout", mock.Anything, "pi_1").Return("cs_1", nil)
		resp, body := app.webhook(`{"id":"evt_r","object":"event","type":"charge.refunded","created":1,
			"data":{"object":{"id":"ch_1","object":"charge","payment_intent":"pi_1"}}}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "applied", decode[handler.WebhookResponse](t, body).Outcome)

		resp, body = app.do(http.MethodGet, "/v1/entitlement", owner, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.False(t, decode[handler.EntitlementResponse](t, body).HasAccess)
	})
}

func TestRouter_InviteRateLimit(t *testing.T) {
	logger := zap.NewNop()
	store := memory.NewStore()
	syncer := service.NewCacheSynchronizer(store, logger, nil)
	h := handler.NewHandler(
		service.NewEntitlementService(store, nil),
		service.NewInviteService(store, syncer, nil, service.InviteConfig{BaseURL: "https://app.example.com"}, logger, nil),
		service.NewPaymentService(store, syncer, nil, nil, domain.DefaultSeatPolicy(), logger, nil),
		service.NewAccountService(store, syncer),
		stripepay.NewWebhookVerifier(webhookSecret),
		logger,
	)
	srv := httptest.NewServer(NewRouter(h, RouterConfig{
		Validator:       handler.NewTokenValidator(jwtSecret, "seatkeeper-test"),
		InviteRateLimit: 2,
		Logger:          logger,
	}))
	defer srv.Close()
	app := &testApp{t: t, srv: srv, store: store}
	token := app.token("acc", "acc@example.com")

	var last int
	for i := 0; i < 3; i++ {
		resp, _ := app.do(http.MethodPost, "/v1/invites/accept", token, handler.AcceptInviteRequest{Token: "x"})
		last = resp.StatusCode
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}
