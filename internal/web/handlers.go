package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cdb-lab/product-radar/internal/auth"
	"github.com/cdb-lab/product-radar/internal/catalog"
	db "github.com/cdb-lab/product-radar/internal/storage"
)

// sessionCookie carries the signed session token.
const sessionCookie = "radar_session"

// envLocal enables development conveniences like showing the magic
// link on the sign-in page instead of sending mail.
const envLocal = "local"

// User-facing French copy.
const (
	msgLinkSent      = "Si cette adresse existe, un lien de connexion vient d'être envoyé."
	msgInvalidEmail  = "Adresse e-mail invalide."
	msgLinkExpired   = "Lien expiré. Demandez-en un nouveau."
	msgLinkInvalid   = "Lien invalide ou déjà utilisé."
	msgTooMany       = "Trop de tentatives. Réessayez dans une minute."
	msgProductGone   = "Produit introuvable."
	msgInternalError = "Une erreur est survenue. Réessayez plus tard."
)

// currentSession resolves the request's cookie to a live session, or
// nil when the visitor is signed out.
func (s *Server) currentSession(r *http.Request) *auth.Session {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := s.provider.SessionFromToken(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrSessionRevoked) {
			AuthDeniedTotal.WithLabelValues(ReasonRevoked).Inc()
		}

		return nil
	}

	return session
}

// requireSession guards a page: a signed-out visitor is redirected to
// the sign-in page and nil is returned.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) *auth.Session {
	session := s.currentSession(r)
	if session == nil {
		AuthDeniedTotal.WithLabelValues(ReasonNoSession).Inc()
		http.Redirect(w, r, "/login", http.StatusSeeOther)

		return nil
	}

	return session
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.opts.AppEnv != envLocal,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.AppEnv != envLocal,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { LatencyHistogram.WithLabelValues(PageLanding).Observe(time.Since(start).Seconds()) }()

	ctx := r.Context()

	// Fetch failures degrade to the empty teaser, never an error screen.
	settings, err := s.store.GetSettings(ctx, []string{db.SettingTeaserN, db.SettingCurrentRunDate})
	if err != nil {
		s.logger.Error().Err(err).Msg("loading landing settings")

		settings = map[string]db.SettingValue{}
	}

	teaserN := db.SettingInt(settings, db.SettingTeaserN, db.DefaultTeaserN)

	products, err := s.store.ListTopProducts(ctx, db.AudiencePublic, "", teaserN)
	if err != nil {
		s.logger.Error().Err(err).Msg("loading teaser products")

		products = nil
	}

	data := &LandingData{
		WeekLabel: WeekLabel(db.SettingString(settings, db.SettingCurrentRunDate, "")),
		Products:  products,
		SignedIn:  s.currentSession(r) != nil,
	}

	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	if err := s.renderer.RenderLanding(w, data); err != nil {
		s.logger.Error().Err(err).Msg("rendering landing page")
		PageHitsTotal.WithLabelValues(PageLanding, StatusError).Inc()

		return
	}

	PageHitsTotal.WithLabelValues(PageLanding, StatusOK).Inc()
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r) != nil {
		http.Redirect(w, r, "/app", http.StatusSeeOther)

		return
	}

	s.renderLogin(w, &LoginData{
		Message: r.URL.Query().Get("message"),
		Error:   r.URL.Query().Get("error"),
	})
	PageHitsTotal.WithLabelValues(PageLogin, StatusOK).Inc()
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(getClientIP(r)) {
		AuthDeniedTotal.WithLabelValues(ReasonRateLimited).Inc()
		PageHitsTotal.WithLabelValues(PageLogin, StatusLimited).Inc()
		w.WriteHeader(http.StatusTooManyRequests)
		s.renderLogin(w, &LoginData{Error: msgTooMany})

		return
	}

	email := r.FormValue("email")

	link, err := s.provider.MagicLink(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidEmail) {
			s.renderLogin(w, &LoginData{Error: msgInvalidEmail})

			return
		}

		s.logger.Error().Err(err).Msg("issuing magic link")
		s.renderLogin(w, &LoginData{Error: msgInternalError})

		return
	}

	data := &LoginData{Message: msgLinkSent}

	// Mail delivery runs out-of-band; locally the link is surfaced on
	// the page so the flow stays testable without a mailbox.
	if s.opts.AppEnv == envLocal {
		data.MagicLink = link
	}

	s.renderLogin(w, data)
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.allowRequest(getClientIP(r)) {
		AuthDeniedTotal.WithLabelValues(ReasonRateLimited).Inc()
		PageHitsTotal.WithLabelValues(PageLogin, StatusLimited).Inc()
		w.WriteHeader(http.StatusTooManyRequests)
		s.renderLogin(w, &LoginData{Error: msgTooMany})

		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.renderLogin(w, &LoginData{Error: msgLinkInvalid})

		return
	}

	session, token, err := s.provider.ExchangeCode(r.Context(), code)
	if err != nil {
		AuthDeniedTotal.WithLabelValues(ReasonBadCode).Inc()

		switch {
		case errors.Is(err, auth.ErrCodeExpired):
			s.renderLogin(w, &LoginData{Error: msgLinkExpired})
		case errors.Is(err, auth.ErrCodeInvalid), errors.Is(err, auth.ErrCodeUsed):
			s.renderLogin(w, &LoginData{Error: msgLinkInvalid})
		default:
			s.logger.Error().Err(err).Msg("exchanging login code")
			s.renderLogin(w, &LoginData{Error: msgInternalError})
		}

		return
	}

	s.setSessionCookie(w, token, session.ExpiresAt)
	SignInsTotal.Inc()

	http.Redirect(w, r, "/app", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { LatencyHistogram.WithLabelValues(PageDashboard).Observe(time.Since(start).Seconds()) }()

	session := s.requireSession(w, r)
	if session == nil {
		return
	}

	ctx := r.Context()

	// Fetch failures degrade to the empty dashboard state, never an
	// error screen.
	settings, err := s.store.GetSettings(ctx, []string{db.SettingCurrentRunDate})
	if err != nil {
		s.logger.Error().Err(err).Msg("loading dashboard settings")

		settings = map[string]db.SettingValue{}
	}

	// Scope the member view to the published run when one is known; the
	// visibility window alone applies otherwise.
	runDate := db.SettingString(settings, db.SettingCurrentRunDate, "")

	products, err := s.store.ListTopProducts(ctx, db.AudienceMember, runDate, s.opts.DashboardLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("loading dashboard products")

		products = nil
	}

	criteria := parseCriteria(r)
	view := catalog.NewView(products)

	data := &DashboardData{
		Email:      session.Email,
		WeekLabel:  WeekLabel(runDate),
		Products:   view.Apply(criteria),
		Criteria:   criteria,
		Categories: catalog.Categories(products),
		Sources:    catalog.Sources(products),
		Total:      len(products),
	}

	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	if err := s.renderer.RenderDashboard(w, data); err != nil {
		s.logger.Error().Err(err).Msg("rendering dashboard")
		PageHitsTotal.WithLabelValues(PageDashboard, StatusError).Inc()

		return
	}

	PageHitsTotal.WithLabelValues(PageDashboard, StatusOK).Inc()
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { LatencyHistogram.WithLabelValues(PageProduct).Observe(time.Since(start).Seconds()) }()

	session := s.requireSession(w, r)
	if session == nil {
		return
	}

	slug := r.PathValue("slug")

	// A failed fetch degrades to the not-found state, never an error
	// screen.
	product, err := s.store.GetProductBySlug(r.Context(), db.AudienceMember, slug)
	if err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("loading product")

		product = nil
	}

	if product == nil {
		s.renderErrorPage(w, http.StatusNotFound, "Introuvable", msgProductGone, "/app", "← Retour dashboard")
		PageHitsTotal.WithLabelValues(PageProduct, StatusNotFound).Inc()

		return
	}

	data := &ProductData{
		Email:  session.Email,
		Detail: NewProductDetailView(*product),
	}

	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	if err := s.renderer.RenderProduct(w, data); err != nil {
		s.logger.Error().Err(err).Str("slug", slug).Msg("rendering product page")
		PageHitsTotal.WithLabelValues(PageProduct, StatusError).Inc()

		return
	}

	PageHitsTotal.WithLabelValues(PageProduct, StatusOK).Inc()
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		if err := s.provider.SignOut(r.Context(), cookie.Value); err != nil {
			s.logger.Error().Err(err).Msg("signing out")
		}
	}

	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, data *LoginData) {
	w.Header().Set(headerContentType, "text/html; charset=utf-8")

	if err := s.renderer.RenderLogin(w, data); err != nil {
		s.logger.Error().Err(err).Msg("rendering login page")
	}
}

func (s *Server) renderErrorPage(w http.ResponseWriter, code int, title, message, backURL, backLabel string) {
	w.Header().Set(headerContentType, "text/html; charset=utf-8")
	w.WriteHeader(code)

	if err := s.renderer.RenderError(w, &ErrorData{
		Code:      code,
		Title:     title,
		Message:   message,
		BackURL:   backURL,
		BackLabel: backLabel,
	}); err != nil {
		s.logger.Error().Err(err).Msg("rendering error page")
	}
}

// parseCriteria maps the dashboard query parameters onto a filter
// tuple. Absent selectors read as "all"; a junk minScore reads as zero.
func parseCriteria(r *http.Request) catalog.Criteria {
	q := r.URL.Query()

	criteria := catalog.DefaultCriteria()
	criteria.Query = strings.TrimSpace(q.Get("q"))

	if category := q.Get("category"); category != "" {
		criteria.Category = category
	}

	if source := q.Get("source"); source != "" {
		criteria.Source = source
	}

	if raw := q.Get("minScore"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			criteria.MinScore = n
		}
	}

	return criteria
}
