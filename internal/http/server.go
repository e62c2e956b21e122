package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ayushroy-246/hmp/internal/auth"
	"github.com/ayushroy-246/hmp/internal/config"
	"github.com/ayushroy-246/hmp/internal/model"
	"github.com/ayushroy-246/hmp/internal/repository"
)

type Server struct {
	cfg    config.Config
	store  *repository.Store
	cache  *redis.Client
	logger *zap.Logger
}

// NewServer wires the handler set. cache may be nil, in which case stats
// queries always hit the database.
func NewServer(cfg config.Config, store *repository.Store, cache *redis.Client, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, store: store, cache: cache, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, http.StatusOK, "ok", nil)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/refresh-token", s.handleRefresh)
		r.Post("/forgot-password", s.handleForgotPassword)
		r.With(s.authMiddleware).Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/me", s.handleGetMe)
		r.With(s.authMiddleware).Post("/change-password", s.handleChangePassword)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", s.loginHandler(model.RoleAdmin, model.RoleSuperAdmin))
			r.Post("/create-super-admin", s.handleCreateSuperAdmin)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware, s.requireRole(model.RoleAdmin, model.RoleSuperAdmin))
				r.Post("/create-admin", s.handleCreateAdmin)
				r.Post("/create-warden", s.handleCreateWarden)
				r.Post("/create-student", s.handleCreateStudent)
				r.Get("/users", s.handleListUsers)
				r.Get("/users/{userID}", s.handleGetUser)
				r.Patch("/users/{userID}", s.handleUpdateUser)
				r.Delete("/users/{userID}", s.handleDeleteUser)
				r.Post("/hostels", s.handleCreateHostel)
				r.Get("/hostels", s.handleListHostels)
				r.Post("/rooms", s.handleCreateRoom)
				r.Get("/rooms", s.handleListRooms)
				r.Get("/complaint-stats", s.handleComplaintStats)
			})
		})

		r.Route("/warden", func(r chi.Router) {
			r.Post("/login", s.loginHandler(model.RoleWarden))

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware, s.requireRole(model.RoleWarden))
				r.Get("/students", s.handleWardenStudents)
				r.Get("/students/{userID}", s.handleWardenStudentDetail)
				r.Post("/create-student", s.handleCreateStudent)
				r.Post("/create-staff", s.handleCreateStaff)
				r.Get("/complaints", s.handleWardenComplaints)
				r.Get("/complaint-stats", s.handleComplaintStats)
			})
		})

		r.Route("/student", func(r chi.Router) {
			r.Post("/login", s.loginHandler(model.RoleStudent))

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware, s.requireRole(model.RoleStudent))
				r.Post("/create-complaint", s.handleCreateComplaint)
				r.Get("/my-complaints", s.handleMyComplaints)
				r.Patch("/resolve-complaint/{complaintID}", s.handleResolveComplaint)
				r.Delete("/delete-complaint/{complaintID}", s.handleDeleteComplaint)
				r.Get("/dashboard-stats", s.handleDashboardStats)
				r.Get("/profile", s.handleGetProfile)
				r.Post("/update-profile", s.handleUpdateProfile)
				r.Get("/profile-status", s.handleProfileStatus)
			})
		})

		r.Route("/staff", func(r chi.Router) {
			r.Post("/login", s.handleStaffLogin)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("ip", clientIP(r)),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := accessTokenFromRequest(r)
		if token == "" {
			writeAPIError(w, http.StatusUnauthorized, "Please login to access this resource")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, token)
		if err != nil {
			writeAPIError(w, http.StatusUnauthorized, "Session expired, please login again")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates a route group on the caller's role claim. Every gate in
// the API goes through here rather than ad-hoc checks inside handlers.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeAPIError(w, http.StatusUnauthorized, "Please login to access this resource")
				return
			}
			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAPIError(w, http.StatusForbidden, "You are not allowed to access this resource")
		})
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// accessTokenFromRequest prefers the Authorization header, falling back to
// the accessToken cookie set at login.
func accessTokenFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	if cookie, err := r.Cookie("accessToken"); err == nil {
		return cookie.Value
	}
	return ""
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func (s *Server) setAuthCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(s.cfg.AccessTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(s.cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{"accessToken", "refreshToken"} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cfg.CookieSecure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

type dataEnvelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errorEnvelope struct {
	Success    bool     `json:"success"`
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, dataEnvelope{Success: true, Message: message, Data: data})
}

func writeAPIError(w http.ResponseWriter, status int, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	writeJSON(w, status, errorEnvelope{Success: false, StatusCode: status, Message: message, Errors: details})
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

// pageParams reads page/limit query values, clamping to sane bounds.
func pageParams(r *http.Request) (page, limit int) {
	page, limit = 1, 10
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return page, limit
}

type paginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func newPaginationMeta(total, page, limit int) paginationMeta {
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}
	return paginationMeta{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}
