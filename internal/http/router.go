package httpx

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/repository"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/service/expense"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/service/identity"
	"github.com/TROJAN1HAMMER/ExpenseTrackerBackend-Harshith-B/internal/service/report"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	identity identity.Service
	expenses expense.Service
	reports  report.Service
	limiter  RateLimiter
	dbHealth func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, identitySvc identity.Service, expenseSvc expense.Service, reportSvc report.Service, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		identity: identitySvc,
		expenses: expenseSvc,
		reports:  reportSvc,
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/api/register", r.audit("register", r.withRateLimit("register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/api/login", r.audit("login", r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/api/logout", r.audit("logout", r.handlerAuthRate("logout", rateLimitUserWrite, rateWindowDefault, r.handleLogout)))
	r.mux.HandleFunc("/api/expenses", r.audit("expenses", r.handlerAuthRate("expenses", rateLimitUserWrite, rateWindowDefault, r.handleExpenses)))
	r.mux.HandleFunc("/api/expenses/", r.audit("expense", r.handlerAuthRate("expense", rateLimitUserWrite, rateWindowDefault, r.handleExpenseByID)))
	r.mux.HandleFunc("/api/reports/monthly", r.audit("report_monthly", r.handlerAuthRate("report_monthly", rateLimitUserRead, rateWindowDefault, r.handleMonthlyReport)))
	r.mux.HandleFunc("/api/reports/category", r.audit("report_category", r.handlerAuthRate("report_category", rateLimitUserRead, rateWindowDefault, r.handleCategoryReport)))
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.identity.Register(req.Context(), payload.Email, payload.Password, payload.Name)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "Missing fields")
		case errors.Is(err, repository.ErrConflict):
			writeError(w, http.StatusBadRequest, "Email already registered")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"uid":     user.UID,
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	token, err := r.identity.SignIn(req.Context(), payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrMissingCredentials):
			writeError(w, http.StatusBadRequest, "Missing fields")
		case errors.Is(err, identity.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":   token,
		"message": "Login successful",
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for logout", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if err := r.identity.RevokeAll(req.Context(), info.UID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (r *Router) handleExpenses(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for expenses", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		r.handleListExpenses(w, req, info.UID)
	case http.MethodPost:
		r.handleCreateExpense(w, req, info.UID)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleListExpenses(w http.ResponseWriter, req *http.Request, userUID string) {
	query := req.URL.Query()
	q := expense.ListQuery{
		Category: query.Get("category"),
		Sort:     query.Get("sort"),
		Order:    query.Get("order"),
	}
	var err error
	if q.MinAmount, err = parseAmountParam(query.Get("minAmount")); err != nil {
		writeError(w, http.StatusBadRequest, "minAmount must be a number")
		return
	}
	if q.MaxAmount, err = parseAmountParam(query.Get("maxAmount")); err != nil {
		writeError(w, http.StatusBadRequest, "maxAmount must be a number")
		return
	}
	if q.StartDate, err = parseDateParam(query.Get("startDate")); err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be a valid date")
		return
	}
	if q.EndDate, err = parseDateParam(query.Get("endDate")); err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be a valid date")
		return
	}
	expenses, err := r.expenses.List(req.Context(), userUID, q)
	if err != nil {
		if errors.Is(err, expense.ErrInvalidSortField) {
			writeError(w, http.StatusBadRequest, "sort must be one of title, amount, category, date")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(expenses),
		"data":    expenses,
	})
}

func (r *Router) handleCreateExpense(w http.ResponseWriter, req *http.Request, userUID string) {
	var payload struct {
		Title    string   `json:"title"`
		Amount   *float64 `json:"amount"`
		Category string   `json:"category"`
		Date     string   `json:"date"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	in := expense.CreateInput{
		Title:    payload.Title,
		Amount:   payload.Amount,
		Category: payload.Category,
	}
	if payload.Date != "" {
		date, err := parseDate(payload.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be a valid date")
			return
		}
		in.Date = &date
	}
	exp, err := r.expenses.Create(req.Context(), userUID, in)
	if err != nil {
		if errors.Is(err, expense.ErrMissingFields) {
			writeError(w, http.StatusBadRequest, "Missing fields")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Expense added successfully",
		"id":      exp.ID,
	})
}

func (r *Router) handleExpenseByID(w http.ResponseWriter, req *http.Request) {
	id := strings.TrimPrefix(req.URL.Path, "/api/expenses/")
	if id == "" || strings.Contains(id, "/") {
		r.notFound(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for expense route", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		exp, err := r.expenses.Get(req.Context(), info.UID, id)
		if err != nil {
			r.writeExpenseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exp)
	case http.MethodPut:
		var payload struct {
			Title    *string  `json:"title"`
			Amount   *float64 `json:"amount"`
			Category *string  `json:"category"`
			Date     *string  `json:"date"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		patch := expense.UpdatePatch{
			Title:    payload.Title,
			Amount:   payload.Amount,
			Category: payload.Category,
		}
		if payload.Date != nil {
			date, err := parseDate(*payload.Date)
			if err != nil {
				writeError(w, http.StatusBadRequest, "date must be a valid date")
				return
			}
			patch.Date = &date
		}
		if err := r.expenses.Update(req.Context(), info.UID, id, patch); err != nil {
			r.writeExpenseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Expense updated successfully"})
	case http.MethodDelete:
		if err := r.expenses.Delete(req.Context(), info.UID, id); err != nil {
			r.writeExpenseError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted successfully"})
	default:
		r.methodNotAllowed(w)
	}
}

// writeExpenseError maps service errors onto the response taxonomy. Non-owned
// records surface exactly like missing ones.
func (r *Router) writeExpenseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, expense.ErrEmptyPatchField):
		writeError(w, http.StatusBadRequest, "Fields cannot be empty")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (r *Router) handleMonthlyReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for monthly report", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	result, err := r.reports.MonthlyReport(req.Context(), info.UID, req.URL.Query().Get("month"), req.URL.Query().Get("year"))
	if err != nil {
		switch {
		case errors.Is(err, report.ErrMissingMonth):
			writeError(w, http.StatusBadRequest, "month and year required")
		case errors.Is(err, report.ErrInvalidMonth):
			writeError(w, http.StatusBadRequest, "month and year must be valid")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (r *Router) handleCategoryReport(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		r.logger.Error("auth context missing for category report", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	entries, err := r.reports.CategoryReport(req.Context(), info.UID, req.URL.Query().Get("category"))
	if err != nil {
		if errors.Is(err, report.ErrMissingCategory) {
			writeError(w, http.StatusBadRequest, "category required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

// audit wraps a handler with request logging and metrics.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_uid", info.UID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func parseAmountParam(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func parseDateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := parseDate(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// parseDate accepts a calendar date or a full RFC3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if value, err := time.Parse("2006-01-02", raw); err == nil {
		return value, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
