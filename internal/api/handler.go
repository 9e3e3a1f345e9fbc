package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quote_relay/internal/domain"
	"quote_relay/internal/service"

	"github.com/gorilla/mux"
)

// Controller is the control surface the HTTP layer drives.
type Controller interface {
	RequestSubscribe(symbol string) (service.Outcome, error)
	RequestUnsubscribe(symbol string) (service.Outcome, error)
	Subscriptions() map[string]int
}

// SymbolStore is the symbol catalog as seen by the admin routes.
type SymbolStore interface {
	ListSymbols() ([]domain.SymbolInfo, error)
	GetSymbol(symbol string) (*domain.SymbolInfo, error)
	UpsertSymbol(info *domain.SymbolInfo) error
	SetActive(symbol string, active bool) error
	DeleteSymbol(symbol string) error
}

// HubHandler is the downstream WebSocket endpoint.
type HubHandler interface {
	http.Handler
	ClientCount() int
}

// StateReporter exposes the upstream connection state.
type StateReporter interface {
	State() domain.ConnState
}

// Handler serves the relay's HTTP API.
type Handler struct {
	control Controller
	catalog SymbolStore
	feed    StateReporter
	metrics http.Handler
	hub     HubHandler
}

// Option configures optional Handler dependencies.
type Option func(*Handler)

// WithCatalog exposes the catalog on /symbols.
func WithCatalog(c SymbolStore) Option { return func(h *Handler) { h.catalog = c } }

// WithMetrics mounts a Prometheus handler on GET /metrics.
func WithMetrics(m http.Handler) Option { return func(h *Handler) { h.metrics = m } }

// WithHub mounts the downstream WebSocket hub on /ws.
func WithHub(hub HubHandler) Option { return func(h *Handler) { h.hub = hub } }

// NewHandler creates the API handler
func NewHandler(control Controller, feed StateReporter, opts ...Option) *Handler {
	h := &Handler{control: control, feed: feed}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the route table. API routes are served at the root and under /api.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterRoutes(r.PathPrefix("/api").Subrouter())

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics).Methods(http.MethodGet)
	}
	if h.hub != nil {
		r.Handle("/ws", h.hub)
	}
	return r
}

// RegisterRoutes registers the control routes on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/subscription/{symbol}", h.Subscribe).Methods(http.MethodPost)
	r.HandleFunc("/subscription/{symbol}", h.Unsubscribe).Methods(http.MethodDelete)
	r.HandleFunc("/subscriptions", h.ListSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/symbols", h.ListSymbols).Methods(http.MethodGet)
	r.HandleFunc("/symbols/{symbol}", h.GetSymbol).Methods(http.MethodGet)
	r.HandleFunc("/symbols/{symbol}", h.PutSymbol).Methods(http.MethodPut)
	r.HandleFunc("/symbols/{symbol}", h.DeleteSymbol).Methods(http.MethodDelete)
	r.HandleFunc("/symbols/{symbol}/active", h.SetSymbolActive).Methods(http.MethodPatch)
}

// Subscribe handles POST /subscription/{symbol}.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	out, err := h.control.RequestSubscribe(mux.Vars(r)["symbol"])
	h.respondOutcome(w, out, err)
}

// Unsubscribe handles DELETE /subscription/{symbol}.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	out, err := h.control.RequestUnsubscribe(mux.Vars(r)["symbol"])
	h.respondOutcome(w, out, err)
}

// ListSubscriptions handles GET /subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.control.Subscriptions())
}

// ListSymbols handles GET /symbols.
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeJSON(w, http.StatusOK, []domain.SymbolInfo{})
		return
	}
	symbols, err := h.catalog.ListSymbols()
	if err != nil {
		slog.Error("list symbols failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, symbols)
}

// symbolRequest is the PUT /symbols/{symbol} body.
type symbolRequest struct {
	Name     string `json:"name"`
	Market   string `json:"market"`
	IsActive *bool  `json:"is_active"` // defaults to true
}

// GetSymbol handles GET /symbols/{symbol}.
func (h *Handler) GetSymbol(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	info, err := h.catalog.GetSymbol(mux.Vars(r)["symbol"])
	if err != nil {
		slog.Error("get symbol failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, domain.ErrUnknownSymbol.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// PutSymbol handles PUT /symbols/{symbol}: create or replace a catalog row.
func (h *Handler) PutSymbol(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	info := &domain.SymbolInfo{
		Symbol:   mux.Vars(r)["symbol"],
		Name:     req.Name,
		Market:   req.Market,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := h.catalog.UpsertSymbol(info); err != nil {
		h.respondCatalogError(w, err)
		return
	}
	slog.Info("catalog symbol saved", slog.String("symbol", info.Symbol), slog.Bool("active", info.IsActive))
	writeJSON(w, http.StatusOK, info)
}

// SetSymbolActive handles PATCH /symbols/{symbol}/active with {"active": bool}.
func (h *Handler) SetSymbolActive(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		writeError(w, http.StatusBadRequest, `body must be {"active": true|false}`)
		return
	}

	symbol := domain.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err := h.catalog.SetActive(symbol, *req.Active); err != nil {
		h.respondCatalogError(w, err)
		return
	}
	slog.Info("catalog symbol toggled", slog.String("symbol", symbol), slog.Bool("active", *req.Active))
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "is_active": *req.Active})
}

// DeleteSymbol handles DELETE /symbols/{symbol}. Live subscriptions are untouched.
func (h *Handler) DeleteSymbol(w http.ResponseWriter, r *http.Request) {
	if !h.requireCatalog(w) {
		return
	}
	symbol := domain.NormalizeSymbol(mux.Vars(r)["symbol"])
	if err := h.catalog.DeleteSymbol(symbol); err != nil {
		h.respondCatalogError(w, err)
		return
	}
	slog.Info("catalog symbol deleted", slog.String("symbol", symbol))
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /healthz. Anything but CONNECTED is reported as 503;
// a terminal state is "down" because nothing reconnects.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := domain.StateDisconnected
	if h.feed != nil {
		state = h.feed.State()
	}

	status, code := "ok", http.StatusOK
	switch {
	case state.IsTerminal():
		status, code = "down", http.StatusServiceUnavailable
	case state != domain.StateConnected:
		status, code = "degraded", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":         status,
		"upstream":       state.String(),
		"active_symbols": len(h.control.Subscriptions()),
	}
	if h.hub != nil {
		body["downstream_clients"] = h.hub.ClientCount()
	}
	writeJSON(w, code, body)
}

func (h *Handler) requireCatalog(w http.ResponseWriter) bool {
	if h.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not configured")
		return false
	}
	return true
}

func (h *Handler) respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("catalog update failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
	}
}

func (h *Handler) respondOutcome(w http.ResponseWriter, out service.Outcome, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, out)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidSymbol):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("control request failed", slog.String("symbol", out.Symbol), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
