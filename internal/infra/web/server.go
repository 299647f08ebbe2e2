package web

import (
	"net/http"
	"strings"
	"time"

	"media-subscription-platform/internal/domain/ports/repository"
	"media-subscription-platform/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server wires the HTTP surface to the use cases. Public routes trust the
// caller-supplied user id (an upstream gateway terminates end-user auth);
// admin routes require the configured API key or a minted session.
type Server struct {
	subUC    usecase.SubscriptionUseCase
	ledger   usecase.RedeemLedger
	gate     usecase.EntitlementGate
	articles repository.ArticleRepository
	auth     *AuthManager
	apiKey   string
	publish  func() // on-demand publish trigger, may be nil
	log      *zerolog.Logger
}

func NewServer(
	subUC usecase.SubscriptionUseCase,
	ledger usecase.RedeemLedger,
	gate usecase.EntitlementGate,
	articles repository.ArticleRepository,
	auth *AuthManager,
	apiKey string,
	publishTrigger func(),
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		subUC:    subUC,
		ledger:   ledger,
		gate:     gate,
		articles: articles,
		auth:     auth,
		apiKey:   apiKey,
		publish:  publishTrigger,
		log:      &l,
	}
}

// Router builds the full route tree with the standard middleware stack.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(15 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/subscriptions", subscriptionCreateHandler(s.subUC))
		r.Get("/subscriptions", subscriptionHistoryHandler(s.subUC))
		r.Get("/subscriptions/{userID}", subscriptionLatestHandler(s.subUC))
		r.Get("/payments/check", paymentCheckHandler(s.subUC))
		r.Post("/redeem-codes/apply", redeemApplyHandler(s.ledger))
		r.Get("/articles/{id}", articleGetHandler(s.articles, s.gate))

		r.Post("/admin/login", s.loginHandler())
		r.Post("/admin/logout", s.logoutHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/redeem-codes", redeemGenerateHandler(s.ledger))
			r.Put("/subscriptions/{id}", subscriptionUpdateHandler(s.subUC))
			r.Delete("/subscriptions/{id}", subscriptionDeleteHandler(s.subUC))
			r.Post("/admin/publish", s.publishHandler())
		})
	})
	return r
}

// requireAdmin admits either the raw API key as a Bearer token or a valid
// minted session (header or cookie).
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.SplitN(hdr, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}

		if s.auth != nil {
			if _, err := s.auth.ParseFromRequest(r); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			APIKey string `json:"api_key"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if s.apiKey == "" || req.APIKey != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			s.log.Error().Err(err).Msg("mint admin session")
			writeError(w, http.StatusInternalServerError, "failed to start session")
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Message: "session started", Data: map[string]string{"token": token}})
	}
}

func (s *Server) logoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.auth.Clear(w)
		writeJSON(w, http.StatusOK, envelope{Status: true, Message: "session cleared"})
	}
}

func (s *Server) publishHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.publish == nil {
			writeError(w, http.StatusNotImplemented, "publish trigger not wired")
			return
		}
		s.publish()
		writeJSON(w, http.StatusAccepted, envelope{Status: true, Message: "publish pass requested"})
	}
}
