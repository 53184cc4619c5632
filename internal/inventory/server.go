package inventory

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server serves the inventory JSON API
type Server struct {
	service   *Service
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // no auth configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false
	}
	return username == s.basicAuth.Username && password == s.basicAuth.Password
}

// corsMiddleware adds CORS headers and answers preflight requests
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Travel Inventory"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	// receipts
	s.mux.HandleFunc("POST /api/receipts/scan", s.requireAuth(s.handleScanReceipt))
	s.mux.HandleFunc("POST /api/receipts/interpret", s.requireAuth(s.handleInterpretText))
	s.mux.HandleFunc("GET /api/receipts/{id}/file", s.requireAuth(s.handleGetReceiptFile))

	// invoices
	s.mux.HandleFunc("GET /api/invoices/{id}", s.requireAuth(s.handleGetInvoice))
	s.mux.HandleFunc("DELETE /api/invoices/{id}", s.requireAuth(s.handleDeleteInvoice))
	s.mux.HandleFunc("GET /api/invoices", s.requireAuth(s.handleListInvoices))
	s.mux.HandleFunc("POST /api/invoices", s.requireAuth(s.handleSaveInvoice))

	// items
	s.mux.HandleFunc("POST /api/items/{id}/status", s.requireAuth(s.handleAdvanceItemStatus))
	s.mux.HandleFunc("POST /api/items/{id}/translate", s.requireAuth(s.handleTranslateItem))
	s.mux.HandleFunc("GET /api/items/{id}", s.requireAuth(s.handleGetItem))
	s.mux.HandleFunc("PATCH /api/items/{id}", s.requireAuth(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /api/items/{id}", s.requireAuth(s.handleDeleteItem))
	s.mux.HandleFunc("GET /api/items", s.requireAuth(s.handleInventoryList))

	// trips
	s.mux.HandleFunc("DELETE /api/trips/{id}", s.requireAuth(s.handleDeleteTrip))
	s.mux.HandleFunc("GET /api/trips", s.requireAuth(s.handleListTrips))
	s.mux.HandleFunc("POST /api/trips", s.requireAuth(s.handleCreateTrip))

	// reports
	s.mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))
	s.mux.HandleFunc("GET /api/prices", s.requireAuth(s.handlePriceHistory))

	// settings and backup
	s.mux.HandleFunc("GET /api/settings", s.requireAuth(s.handleGetSettings))
	s.mux.HandleFunc("PUT /api/settings", s.requireAuth(s.handleUpdateSettings))
	s.mux.HandleFunc("GET /api/export.xlsx", s.requireAuth(s.handleExportXLSX))
	s.mux.HandleFunc("GET /api/export", s.requireAuth(s.handleExport))
	s.mux.HandleFunc("POST /api/import", s.requireAuth(s.handleImport))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.corsMiddleware(s.mux))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.corsMiddleware(s.mux).ServeHTTP(w, r)
}
