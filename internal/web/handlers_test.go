package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdb-lab/product-radar/internal/auth"
	"github.com/cdb-lab/product-radar/internal/catalog"
	db "github.com/cdb-lab/product-radar/internal/storage"
)

type fakeStore struct {
	products []catalog.Product
	product  *catalog.Product
	settings map[string]db.SettingValue

	listErr     error
	getErr      error
	settingsErr error

	listCalls    int
	getCalls     int
	lastAudience db.Audience
	lastRunDate  string
	lastLimit    int
}

func (f *fakeStore) ListTopProducts(_ context.Context, audience db.Audience, runDate string, limit int) ([]catalog.Product, error) {
	f.listCalls++
	f.lastAudience = audience
	f.lastRunDate = runDate
	f.lastLimit = limit

	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.products, nil
}

func (f *fakeStore) GetProductBySlug(_ context.Context, audience db.Audience, _ string) (*catalog.Product, error) {
	f.getCalls++
	f.lastAudience = audience

	if f.getErr != nil {
		return nil, f.getErr
	}

	return f.product, nil
}

func (f *fakeStore) GetSettings(_ context.Context, _ []string) (map[string]db.SettingValue, error) {
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}

	if f.settings == nil {
		return map[string]db.SettingValue{}, nil
	}

	return f.settings, nil
}

type fakeProvider struct {
	session    *auth.Session
	sessionErr error

	link    string
	linkErr error

	exchangeSession *auth.Session
	exchangeToken   string
	exchangeErr     error

	signedOut []string
}

func (f *fakeProvider) MagicLink(_ context.Context, _ string) (string, error) {
	return f.link, f.linkErr
}

func (f *fakeProvider) ExchangeCode(_ context.Context, _ string) (*auth.Session, string, error) {
	return f.exchangeSession, f.exchangeToken, f.exchangeErr
}

func (f *fakeProvider) SessionFromToken(_ context.Context, _ string) (*auth.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)

	return nil
}

func sampleProducts() []catalog.Product {
	return []catalog.Product{
		{
			Title:    "Brosse Vapeur",
			Slug:     "brosse-vapeur",
			Category: "cuisine",
			Score:    80,
			Tags:     []string{"brosse"},
			Sources:  []string{"pinterest"},
		},
		{
			Title:    "Tapis Fitness",
			Slug:     "tapis-fitness",
			Category: "fitness",
			Score:    60,
			Sources:  []string{"tiktok"},
		},
	}
}

func memberSession() *auth.Session {
	return &auth.Session{
		ID:        "8e718a2f-9b5c-4f43-b2a8-000000000001",
		Email:     "marie@example.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newTestServer(t *testing.T, store *fakeStore, provider *fakeProvider) *Server {
	t.Helper()

	logger := zerolog.Nop()

	srv, err := NewServer(store, provider, auth.NewHub(), Options{
		Port:           0,
		AppEnv:         "test",
		DashboardLimit: 50,
	}, nil, &logger)
	require.NoError(t, err)

	return srv
}

func doRequest(t *testing.T, srv *Server, method, target string, signedIn bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if signedIn {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "token"})
	}

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	return rec
}

func TestLandingUsesDefaultTeaserSize(t *testing.T) {
	store := &fakeStore{products: sampleProducts()[:1]}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.AudiencePublic, store.lastAudience)
	assert.Equal(t, db.DefaultTeaserN, store.lastLimit)
	assert.Contains(t, rec.Body.String(), "Brosse Vapeur")
	assert.Contains(t, rec.Body.String(), "Se connecter")
}

func TestLandingRespectsTeaserSetting(t *testing.T) {
	store := &fakeStore{
		settings: map[string]db.SettingValue{
			db.SettingTeaserN:        {V: float64(3)},
			db.SettingCurrentRunDate: {V: "2026-08-23"},
		},
	}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, store.lastLimit)
	assert.Contains(t, rec.Body.String(), "Semaine du 23/08/2026")
}

func TestDashboardRedirectsWithoutSession(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/app", false)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, store.listCalls, "guard must short-circuit before any store read")
}

func TestProductRedirectsWithoutSession(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/app/product/brosse-vapeur", false)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, store.getCalls)
}

func TestDashboardRedirectsWhenSessionRevoked(t *testing.T) {
	store := &fakeStore{products: sampleProducts()}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrSessionRevoked})

	rec := doRequest(t, srv, http.MethodGet, "/app", true)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, store.listCalls)
}

func TestDashboardListsMemberProducts(t *testing.T) {
	store := &fakeStore{products: sampleProducts()}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.AudienceMember, store.lastAudience)
	assert.Equal(t, 50, store.lastLimit)

	body := rec.Body.String()
	assert.Contains(t, body, "Brosse Vapeur")
	assert.Contains(t, body, "Tapis Fitness")
	assert.Contains(t, body, "marie@example.com")
}

func TestDashboardAppliesFilters(t *testing.T) {
	store := &fakeStore{products: sampleProducts()}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app?category=cuisine", true)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Brosse Vapeur")
	assert.NotContains(t, body, "Tapis Fitness")
}

func TestDashboardEmptyFilterState(t *testing.T) {
	store := &fakeStore{products: sampleProducts()}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app?q=introuvable", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aucun produit avec ces filtres.")
}

func TestDashboardScopedToCurrentRun(t *testing.T) {
	store := &fakeStore{
		products: sampleProducts(),
		settings: map[string]db.SettingValue{
			db.SettingCurrentRunDate: {V: "2026-08-23"},
		},
	}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-08-23", store.lastRunDate, "member query must scope to the published run")
}

func TestDashboardStoreErrorShowsEmptyState(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection reset")}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app", true)

	require.Equal(t, http.StatusOK, rec.Code, "a failed fetch degrades to the empty state")
	assert.Contains(t, rec.Body.String(), "Aucun produit avec ces filtres.")
}

func TestDashboardSettingsErrorStillRenders(t *testing.T) {
	store := &fakeStore{products: sampleProducts(), settingsErr: errors.New("connection reset")}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app", true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, store.lastRunDate)
	assert.Contains(t, rec.Body.String(), "Brosse Vapeur")
}

func TestLandingStoreErrorShowsEmptyTeaser(t *testing.T) {
	store := &fakeStore{listErr: errors.New("connection reset")}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "La sélection de cette semaine arrive bientôt.")
}

func TestLandingSettingsErrorFallsBackToDefaults(t *testing.T) {
	store := &fakeStore{settingsErr: errors.New("connection reset")}
	srv := newTestServer(t, store, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, db.DefaultTeaserN, store.lastLimit)
}

func TestProductStoreErrorShowsNotFound(t *testing.T) {
	store := &fakeStore{getErr: errors.New("connection reset")}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app/product/brosse-vapeur", true)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Produit introuvable.")
}

func TestProductNotFound(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app/product/disparu", true)

	require.Equal(t, http.StatusNotFound, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Produit introuvable.")
	assert.Contains(t, body, "Retour dashboard")
}

func TestProductWithoutAnalysisShowsPlaceholders(t *testing.T) {
	product := sampleProducts()[0]
	store := &fakeStore{product: &product}
	srv := newTestServer(t, store, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/app/product/brosse-vapeur", true)

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Brosse Vapeur")
	assert.Contains(t, body, Placeholder)
}

func TestLoginRedirectsWhenSignedIn(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{session: memberSession()})

	rec := doRequest(t, srv, http.MethodGet, "/login", true)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))
}

func TestMagicLinkInvalidEmail(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{linkErr: auth.ErrInvalidEmail})

	form := url.Values{"email": {"pas-une-adresse"}}
	req := httptest.NewRequest(http.MethodPost, "/login/magic", strings.NewReader(form.Encode()))
	req.Header.Set(headerContentType, "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgInvalidEmail)
}

func TestMagicLinkSent(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{link: "http://localhost:8080/auth/callback?code=abc"})

	form := url.Values{"email": {"marie@example.com"}}
	req := httptest.NewRequest(http.MethodPost, "/login/magic", strings.NewReader(form.Encode()))
	req.Header.Set(headerContentType, "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgLinkSent)
	assert.NotContains(t, rec.Body.String(), "Lien de développement", "link is only surfaced in local env")
}

func TestAuthCallbackSuccess(t *testing.T) {
	provider := &fakeProvider{
		exchangeSession: memberSession(),
		exchangeToken:   "signed-token",
	}
	srv := newTestServer(t, &fakeStore{}, provider)

	rec := doRequest(t, srv, http.MethodGet, "/auth/callback?code=abc", false)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuthCallbackExpiredCode(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{exchangeErr: auth.ErrCodeExpired})

	rec := doRequest(t, srv, http.MethodGet, "/auth/callback?code=abc", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgLinkExpired)
}

func TestAuthCallbackUsedCode(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{exchangeErr: auth.ErrCodeUsed})

	rec := doRequest(t, srv, http.MethodGet, "/auth/callback?code=abc", false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgLinkInvalid)
}

func TestLogoutRevokesAndClearsCookie(t *testing.T) {
	provider := &fakeProvider{session: memberSession()}
	srv := newTestServer(t, &fakeStore{}, provider)

	rec := doRequest(t, srv, http.MethodPost, "/logout", true)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, []string{"token"}, provider.signedOut)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSessionSocketRequiresSession(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{sessionErr: auth.ErrNoSession})

	rec := doRequest(t, srv, http.MethodGet, "/session/ws", false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, &fakeProvider{})

	rec := doRequest(t, srv, http.MethodGet, "/healthz", false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
