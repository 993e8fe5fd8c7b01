package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointbox/customer-web/internal/store"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]interface{}
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
	server   *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{routes: map[string]func(w http.ResponseWriter, r *http.Request){}}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		handler, ok := fb.routes[r.Method+" "+r.URL.Path]
		fb.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"not found"}`))
			return
		}
		handler(w, r)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) handle(method, path string, status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (fb *fakeBackend) calls() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func (fb *fakeBackend) last(t *testing.T) recordedRequest {
	t.Helper()
	calls := fb.calls()
	require.NotEmpty(t, calls)
	return calls[len(calls)-1]
}

func newBoundClient(fb *fakeBackend) (*Client, store.Store) {
	browser := store.NewMemory().Scope("browser-1")
	client := New(Options{BaseURL: fb.server.URL, DeviceToken: "device-1"}).Bind(browser)
	return client, browser
}

func TestAuthorizationHeaderFollowsStoredToken(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/transactions", http.StatusOK, `{"success":true,"data":[]}`)
	client, browser := newBoundClient(fb)
	ctx := context.Background()

	_, err := client.GetTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))

	require.NoError(t, browser.Set(ctx, store.KeyToken, "stored-token"))
	_, err = client.GetTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer stored-token", fb.last(t).Header.Get("Authorization"))

	require.NoError(t, client.ClearToken(ctx))
	_, err = client.GetTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))
}

func TestLoginValidatesBeforeNetwork(t *testing.T) {
	fb := newFakeBackend(t)
	client, _ := newBoundClient(fb)
	ctx := context.Background()

	cases := []struct {
		email, password, message string
	}{
		{"a@b.com", "", "Email and password are required"},
		{"", "secret1", "Email and password are required"},
		{"   ", "secret1", "Email and password are required"},
		{"a@b.com", "   ", "Password is required"},
	}
	for _, tc := range cases {
		_, err := client.Login(ctx, tc.email, tc.password)
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, tc.message, err.Error())
	}
	assert.Empty(t, fb.calls(), "no request may reach the backend")
}

func TestLoginPersistsTokenAndTrimsFields(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/login", http.StatusOK, `{"success":true,"token":"T","user":{"_id":"u1","email":"a@b.com"}}`)
	fb.handle(http.MethodGet, "/profile", http.StatusOK, `{"success":true,"data":{"_id":"u1","email":"a@b.com","username":"Ann"}}`)
	client, browser := newBoundClient(fb)
	ctx := context.Background()

	env, err := client.Login(ctx, "  a@b.com ", " secret1 ")
	require.NoError(t, err)
	assert.True(t, env.Success)
	require.NotNil(t, env.User)
	assert.Equal(t, "u1", env.User.MongoID)

	login := fb.last(t)
	assert.Equal(t, "a@b.com", login.Body["email"])
	assert.Equal(t, "secret1", login.Body["password"])
	assert.Equal(t, "device-1", login.Body["deviceToken"])

	stored, ok, err := browser.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "T", stored)

	_, err = client.GetProfile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer T", fb.last(t).Header.Get("Authorization"))
}

func TestLoginWithoutTokenDoesNotPersist(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/login", http.StatusOK, `{"success":false,"message":"Please verify your email"}`)
	client, browser := newBoundClient(fb)

	env, err := client.Login(context.Background(), "a@b.com", "secret1")
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, "Please verify your email", env.Message)
	_, ok, err := browser.Get(context.Background(), store.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorMessages(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/profile", http.StatusUnauthorized, `{"success":false,"message":"Token expired"}`)
	fb.handle(http.MethodGet, "/products", http.StatusInternalServerError, `<html>oops</html>`)
	fb.handle(http.MethodGet, "/brands", http.StatusOK, `not json`)
	client, _ := newBoundClient(fb)
	ctx := context.Background()

	_, err := client.GetProfile(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Token expired", err.Error())

	_, err = client.GetProducts(ctx)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "HTTP error! status: 500", err.Error())

	_, err = client.GetBrands(ctx)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, "Failed to load brands", Message(err, "Failed to load brands"))
}

func TestTransportFailure(t *testing.T) {
	fb := newFakeBackend(t)
	url := fb.server.URL
	fb.server.Close()
	client := New(Options{BaseURL: url}).Bind(store.NewMemory().Scope("b"))

	_, err := client.GetTransactions(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestUnsuccessfulEnvelopeIsAnError(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/transactions", http.StatusOK, `{"success":false,"message":"No customer"}`)
	client, _ := newBoundClient(fb)

	_, err := client.GetTransactions(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No customer", Message(err, "fallback"))
}

func TestRequestHeaderOverride(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/conversion-rate", http.StatusOK, `{"success":true,"data":{"from":"points","to":"USD","rate":0.01}}`)
	client, _ := newBoundClient(fb)

	headers := http.Header{}
	headers.Set("Content-Type", "application/vnd.pointbox+json")
	headers.Set("X-Trace", "abc")
	_, err := client.Request(context.Background(), http.MethodGet, "/conversion-rate", nil, headers)
	require.NoError(t, err)
	last := fb.last(t)
	assert.Equal(t, "application/vnd.pointbox+json", last.Header.Get("Content-Type"))
	assert.Equal(t, "abc", last.Header.Get("X-Trace"))

	rate, err := client.GetConversionRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.01, rate.Rate)
	assert.Equal(t, "application/json", fb.last(t).Header.Get("Content-Type"))
}

func TestPublicContentNeverSendsToken(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/web/faqs", http.StatusOK, `{"success":true,"data":[{"_id":"f1","question":"Q","answer":"A"}]}`)
	fb.handle(http.MethodPost, "/web/products", http.StatusOK, `{"success":true,"data":[{"_id":"p1","name":"Mug","redeem_points":500}]}`)
	fb.handle(http.MethodPost, "/web/newsletter-emails", http.StatusOK, `{"success":true}`)
	fb.handle(http.MethodPost, "/contact", http.StatusOK, `{"success":true}`)
	client, browser := newBoundClient(fb)
	ctx := context.Background()
	require.NoError(t, browser.Set(ctx, store.KeyToken, "T"))

	faqs, err := client.GetWebFAQs(ctx)
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))

	products, err := client.GetWebProducts(ctx, "brand-9")
	require.NoError(t, err)
	require.Len(t, products, 1)
	last := fb.last(t)
	assert.Equal(t, "brand-9", last.Body["id"])
	assert.Empty(t, last.Header.Get("Authorization"))

	_, err = client.CreateNewsletterEmail(ctx, "news@b.com")
	require.NoError(t, err)
	last = fb.last(t)
	assert.Equal(t, "footer", last.Body["source"])
	assert.Empty(t, last.Header.Get("Authorization"))

	_, err = client.SubmitContact(ctx, ContactRequest{Name: "Ann", Email: "a@b.com", Subject: "Hi", Message: "Hello"})
	require.NoError(t, err)
	assert.Empty(t, fb.last(t).Header.Get("Authorization"))
}

func TestWebBannerShapes(t *testing.T) {
	shapes := map[string]string{
		"data":    `{"success":true,"data":[{"_id":"b1","title":"One"}]}`,
		"banners": `{"banners":[{"_id":"b1","title":"One"}]}`,
		"array":   `[{"_id":"b1","title":"One"}]`,
	}
	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			fb := newFakeBackend(t)
			fb.handle(http.MethodGet, "/web/banners", http.StatusOK, body)
			client, _ := newBoundClient(fb)
			banners, err := client.GetWebBanners(context.Background())
			require.NoError(t, err)
			require.Len(t, banners, 1)
			assert.Equal(t, "One", banners[0].Title)
		})
	}

	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/web/banners", http.StatusOK, `{"success":true}`)
	client, _ := newBoundClient(fb)
	banners, err := client.GetWebBanners(context.Background())
	require.NoError(t, err)
	assert.Empty(t, banners)
}

func TestDeleteAccountClearsToken(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodDelete, "/account", http.StatusOK, `{"success":true,"data":{"message":"deleted"}}`)
	client, browser := newBoundClient(fb)
	ctx := context.Background()
	require.NoError(t, client.SetToken(ctx, "T"))

	env, err := client.DeleteAccount(ctx)
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, "", client.Token(ctx))
	_, ok, err := browser.Get(ctx, store.KeyToken)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefDecodesIDOrObject(t *testing.T) {
	var customer Customer
	err := json.Unmarshal([]byte(`{"_id":"c1","linkedCompanies":[{"company":"b1","points":10},{"company":{"_id":"b2","companyName":"Shop"},"points":20},{"company":null}]}`), &customer)
	require.NoError(t, err)
	require.Len(t, customer.LinkedCompanies, 3)
	assert.Equal(t, "b1", customer.LinkedCompanies[0].Company.ID)
	assert.False(t, customer.LinkedCompanies[0].Company.Populated)
	assert.Equal(t, "b2", customer.LinkedCompanies[1].Company.ID)
	assert.Equal(t, "Shop", customer.LinkedCompanies[1].Company.CompanyName)
	assert.True(t, customer.LinkedCompanies[1].Company.Populated)
	assert.Equal(t, "", customer.LinkedCompanies[2].Company.ID)
}

func TestRequestLogRedactsPasswords(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/change-password", http.StatusOK, `{"success":true}`)
	fb.handle(http.MethodPost, "/login", http.StatusOK, `{"success":true}`)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	client := New(Options{BaseURL: fb.server.URL, Logger: logger}).Bind(store.NewMemory().Scope("b"))
	ctx := context.Background()

	_, err := client.ChangePasswordWithOTP(ctx, "a@b.com", "hunter22")
	require.NoError(t, err)
	_, err = client.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	output := buf.String()
	assert.NotContains(t, output, "hunter22")
	assert.NotContains(t, output, "secret1")
	assert.Contains(t, output, `"newPassword":"***"`)
	assert.Contains(t, output, `"password":"***"`)
	assert.Contains(t, output, `"password_length":8`)
	assert.Contains(t, output, `"has_password":true`)

	buf.Reset()
	_, _ = client.Request(ctx, http.MethodPost, "/login", nil, nil)
	assert.True(t, strings.Contains(buf.String(), "api request without body"))
}

func TestMetricsCountRequests(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/products", http.StatusOK, `{"success":true,"data":[]}`)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := New(Options{BaseURL: fb.server.URL, Metrics: metrics}).Bind(store.NewMemory().Scope("b"))

	_, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	_, err = client.GetProducts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.requests.WithLabelValues("/products", "200")))
}

func TestNewsletterEmailValidatedLocally(t *testing.T) {
	fb := newFakeBackend(t)
	client, _ := newBoundClient(fb)
	ctx := context.Background()

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := client.CreateNewsletterEmail(ctx, email)
		assert.True(t, IsValidation(err), "email %q", email)
	}
	assert.Empty(t, fb.calls())
}
