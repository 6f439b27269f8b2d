package http_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/app"
	"github.com/aradsms/webhook_relay/internal/webhook_relay_service/domain"
	httptransport "github.com/aradsms/webhook_relay/internal/webhook_relay_service/transport/http"
)

// MockDispatcher for WebhookHandler tests
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, raw []byte) (*app.DispatchResult, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*app.DispatchResult), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, phoneNumber string, text string) (string, error) {
	args := m.Called(ctx, phoneNumber, text)
	return args.String(0), args.Error(1)
}

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendText(ctx context.Context, to string, body string) (*domain.SendResult, error) {
	args := m.Called(ctx, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SendResult), args.Error(1)
}

type nopAnnouncer struct{}

func (nopAnnouncer) MessageReceived(context.Context, domain.MessageReceived) error { return nil }
func (nopAnnouncer) StatusReceived(context.Context, domain.StatusUpdate) error     { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func verifyURL(token, challenge string) string {
	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", token)
	q.Set("hub.challenge", challenge)
	return "/webhook?" + q.Encode()
}

// newReadyRouter wires the real verifier and dispatcher around mocked store and sender.
func newReadyRouter(t *testing.T, repo *MockMessageRepository, sender *MockMessageSender) http.Handler {
	t.Helper()
	logger := discardLogger()
	dispatcher := app.NewEventDispatcher(repo, sender, nopAnnouncer{}, nil, validator.New(), logger)
	readiness := httptransport.NewReadiness()
	readiness.MarkReady()
	return httptransport.NewRouter(httptransport.RouterDeps{
		Webhook:   httptransport.NewWebhookHandler(app.NewWebhookVerifier("verify-me", logger), dispatcher, logger),
		Readiness: readiness,
		Logger:    logger,
	})
}

func TestWebhookHandler_Verification(t *testing.T) {
	router := newReadyRouter(t, new(MockMessageRepository), new(MockMessageSender))

	testCases := []struct {
		name      string
		token     string
		challenge string
		wantBody  string
	}{
		{name: "match echoes challenge", token: "verify-me", challenge: "1158201444", wantBody: "1158201444"},
		{name: "challenge echoed byte for byte", token: "verify-me", challenge: "<b>ü &amp; spaces </b>", wantBody: "<b>ü &amp; spaces </b>"},
		{name: "mismatch", token: "wrong", challenge: "1158201444", wantBody: "Verification failed"},
		{name: "missing token", token: "", challenge: "abc", wantBody: "Verification failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, verifyURL(tc.token, tc.challenge), nil)
			rr := httptest.NewRecorder()

			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tc.wantBody, rr.Body.String())
		})
	}
}

func TestWebhookHandler_Verification_NotGatedByReadiness(t *testing.T) {
	logger := discardLogger()
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Webhook:   httptransport.NewWebhookHandler(app.NewWebhookVerifier("v", logger), new(MockDispatcher), logger),
		Readiness: httptransport.NewReadiness(),
		Logger:    logger,
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, verifyURL("v", "42"), nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "42", rr.Body.String())
}

func TestWebhookHandler_Delivery_MessageStoredAndReplied(t *testing.T) {
	repo := new(MockMessageRepository)
	sender := new(MockMessageSender)
	router := newReadyRouter(t, repo, sender)

	repo.On("Create", mock.Anything, "393401234567", "ciao").Return("rec-1", nil).Once()
	sender.On("SendText", mock.Anything, "393401234567", "You said: ciao").Return(&domain.SendResult{ProviderMessageID: "wamid.r"}, nil).Once()

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"393401234567","id":"wamid.1","type":"text","text":{"body":"ciao"}}]}}]}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestWebhookHandler_Delivery_StoreFailureStillAnswers200(t *testing.T) {
	repo := new(MockMessageRepository)
	sender := new(MockMessageSender)
	router := newReadyRouter(t, repo, sender)

	repo.On("Create", mock.Anything, "1", "hi").Return("", fmt.Errorf("%w: server selection timeout", domain.ErrStorageFailure)).Once()
	sender.On("SendText", mock.Anything, "1", "You said: hi").Return(nil, fmt.Errorf("%w: status 400", domain.ErrSendFailure)).Once()

	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","text":{"body":"hi"}}]}}]}]}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestWebhookHandler_Delivery_StatusAndUnrecognized(t *testing.T) {
	repo := new(MockMessageRepository)
	sender := new(MockMessageSender)
	router := newReadyRouter(t, repo, sender)

	for _, body := range []string{
		`{"entry":[{"changes":[{"value":{"statuses":[{"id":"wamid.x","status":"read"}]}}]}]}`,
		`{"entry":[{"changes":[{"value":{"something_else":true}}]}]}`,
		`{}`,
		`{"entry":"not-a-list"}`,
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		assert.Equal(t, http.StatusOK, rr.Code, body)
		assert.Empty(t, rr.Body.String())
	}

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_Delivery_Malformed(t *testing.T) {
	router := newReadyRouter(t, new(MockMessageRepository), new(MockMessageSender))

	for _, body := range []string{`not json`, `[]`, `"x"`, `null`, ``} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		assert.Equal(t, http.StatusInternalServerError, rr.Code, body)
		assert.Empty(t, rr.Body.String())
	}
}

func TestWebhookHandler_Delivery_ContextSurvivesClientCancel(t *testing.T) {
	dispatcher := new(MockDispatcher)
	logger := discardLogger()
	handler := httptransport.NewWebhookHandler(app.NewWebhookVerifier("v", logger), dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher.On("Dispatch", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), []byte(`{}`)).
		Return(&app.DispatchResult{Kind: domain.EventKindUnrecognized}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	handler.HandleDelivery(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	dispatcher.AssertExpectations(t)
}

func TestWebhookHandler_Delivery_DispatchErrorIs500(t *testing.T) {
	dispatcher := new(MockDispatcher)
	logger := discardLogger()
	handler := httptransport.NewWebhookHandler(app.NewWebhookVerifier("v", logger), dispatcher, logger)

	dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	rr := httptest.NewRecorder()
	handler.HandleDelivery(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestWebhookHandler_Delivery_OversizedBodyRejected(t *testing.T) {
	dispatcher := new(MockDispatcher)
	logger := discardLogger()
	handler := httptransport.NewWebhookHandler(app.NewWebhookVerifier("v", logger), dispatcher, logger)

	body := `{"pad":"` + strings.Repeat("a", httptransport.MaxDeliveryBytes) + `"}`
	rr := httptest.NewRecorder()
	handler.HandleDelivery(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	dispatcher.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestWebhookHandler_Delivery_BodyAtLimitAccepted(t *testing.T) {
	dispatcher := new(MockDispatcher)
	logger := discardLogger()
	handler := httptransport.NewWebhookHandler(app.NewWebhookVerifier("v", logger), dispatcher, logger)

	prefix, suffix := `{"pad":"`, `"}`
	body := prefix + strings.Repeat("a", httptransport.MaxDeliveryBytes-len(prefix)-len(suffix)) + suffix
	dispatcher.On("Dispatch", mock.Anything, []byte(body)).Return(&app.DispatchResult{Kind: domain.EventKindUnrecognized}, nil).Once()

	rr := httptest.NewRecorder()
	handler.HandleDelivery(rr, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rr.Code)
	dispatcher.AssertExpectations(t)
}
