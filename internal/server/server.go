// Package server exposes the EIR calculator over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/iwvelando/loan-eir/internal/config"
	"github.com/iwvelando/loan-eir/pkg/constants"
	"github.com/iwvelando/loan-eir/pkg/eir"
	"github.com/iwvelando/loan-eir/pkg/output"
	"github.com/iwvelando/loan-eir/pkg/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Options configures NewHandler.
type Options struct {
	MaxRequestSize   int64
	BatchConcurrency int
	AllowedOrigins   []string
	Engine           config.EngineConfig
	Version          string
	// Now overrides the calculation clock; nil means time.Now.
	Now func() time.Time
}

type handler struct {
	logger           *zap.Logger
	calculator       *eir.Calculator
	maxRequestSize   int64
	batchConcurrency int
	includeCashFlows bool
	version          string
	now              func() time.Time
}

// NewHandler constructs the HTTP handler that serves the EIR API.
func NewHandler(logger *zap.Logger, opts Options) (http.Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxRequestSize <= 0 {
		opts.MaxRequestSize = constants.DefaultMaxRequestSizeBytes
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = constants.DefaultBatchConcurrency
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	engine := config.Configuration{Engine: opts.Engine}
	settings, err := engine.Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid engine settings: %w", err)
	}
	if opts.Now != nil {
		settings.Now = opts.Now
	}

	h := &handler{
		logger:           logger,
		calculator:       eir.NewCalculator(logger, settings),
		maxRequestSize:   opts.MaxRequestSize,
		batchConcurrency: opts.BatchConcurrency,
		includeCashFlows: opts.Engine.IncludeCashFlows,
		version:          trimmedVersion,
		now:              settings.Now,
	}

	r := chi.NewRouter()
	r.Use(h.requestID)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
		}))
	}
	r.Use(h.limitBody)

	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/version", h.handleVersion)
		r.Post("/eir", h.handleCalculate)
		r.Post("/eir/batch", h.handleBatch)
		r.Post("/eir/config", h.handleConfig)
	})

	return r, nil
}

// requestID tags each request with a correlation ID, reusing the caller's
// when one is supplied.
func (h *handler) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *handler) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDFromContext returns the correlation ID assigned to a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type calculateResponse struct {
	RequestID string     `json:"requestId"`
	Result    eir.Result `json:"result"`
	Warnings  []string   `json:"warnings,omitempty"`
	Duration  string     `json:"duration"`
}

type batchRequest struct {
	Loans []config.Loan `json:"loans"`
}

type batchResponse struct {
	RequestID string       `json:"requestId"`
	Results   []eir.Result `json:"results"`
	Warnings  []string     `json:"warnings,omitempty"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	CSV       string       `json:"csv,omitempty"`
	Duration  string       `json:"duration"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	start := time.Now()

	var loan config.Loan
	if err := h.decodeJSON(r, &loan); err != nil {
		h.respondDecodeError(w, r, err, op)
		return
	}

	data, err := loan.ToLoanData()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	result := h.calculator.Calculate(data)
	if !h.includeCashFlows {
		result.CashFlows = nil
	}

	elapsed := time.Since(start)
	h.logger.Info("eir computed",
		zap.String("op", op),
		zap.String("requestId", RequestIDFromContext(r.Context())),
		zap.String("loanId", result.LoanID),
		zap.String("status", string(result.Status)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, calculateResponse{
		RequestID: RequestIDFromContext(r.Context()),
		Result:    result,
		Warnings:  validation.ValidateLoan(data),
		Duration:  elapsed.String(),
	})
}

func (h *handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleBatch"
	start := time.Now()

	var request batchRequest
	if err := h.decodeJSON(r, &request); err != nil {
		h.respondDecodeError(w, r, err, op)
		return
	}
	if len(request.Loans) == 0 {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "no loans in request", op)
		return
	}
	if len(request.Loans) > constants.MaxBatchSize {
		h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d loans exceeds limit of %d", len(request.Loans), constants.MaxBatchSize), op)
		return
	}

	loans := make([]eir.LoanData, len(request.Loans))
	for i := range request.Loans {
		data, err := request.Loans[i].ToLoanData()
		if err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("loans[%d]: %v", i, err), op)
			return
		}
		loans[i] = data
	}

	results, err := h.calculateAll(r.Context(), h.calculator, loans)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, fmt.Sprintf("batch aborted: %v", err), op)
		return
	}

	h.respondResults(w, r, op, start, loans, results, nil, h.includeCashFlows)
}

// handleConfig runs every loan in an uploaded configuration document, using
// the document's own engine settings. The document is either a multipart
// "file" upload or the raw request body; JSON bodies are detected by
// content type.
func (h *handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleConfig"
	start := time.Now()

	document, configType, err := h.readDocument(r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxRequestSize), op)
			return
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(document), configType)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	warnings, err := cfg.ValidateConfiguration()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	if len(cfg.Loans) == 0 {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, "configuration contains no loans", op)
		return
	}
	if len(cfg.Loans) > constants.MaxBatchSize {
		h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("configuration of %d loans exceeds limit of %d", len(cfg.Loans), constants.MaxBatchSize), op)
		return
	}

	loans, err := cfg.LoanData()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	settings, err := cfg.Settings()
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}
	settings.Now = h.now

	results, err := h.calculateAll(r.Context(), eir.NewCalculator(h.logger, settings), loans)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusServiceUnavailable, fmt.Sprintf("calculation aborted: %v", err), op)
		return
	}
	h.respondResults(w, r, op, start, loans, results, warnings, cfg.Engine.IncludeCashFlows)
}

func (h *handler) readDocument(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxRequestSize); err != nil {
			return nil, "", fmt.Errorf("failed to parse upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", errors.New("missing configuration file")
		}
		defer func() {
			if closeErr := file.Close(); closeErr != nil {
				h.logger.Warn("failed to close uploaded file",
					zap.String("op", "server.readDocument"),
					zap.Error(closeErr),
				)
			}
		}()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, file); err != nil {
			return nil, "", fmt.Errorf("failed to read configuration: %w", err)
		}
		configType := "yaml"
		if strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
			configType = "json"
		}
		return buf.Bytes(), configType, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read configuration: %w", err)
	}
	if strings.Contains(contentType, "json") {
		return data, "json", nil
	}
	return data, "yaml", nil
}

// calculateAll computes results in input order with bounded concurrency.
// Loan failures are results, so only cancellation aborts the batch.
func (h *handler) calculateAll(ctx context.Context, calculator *eir.Calculator, loans []eir.LoanData) ([]eir.Result, error) {
	results := make([]eir.Result, len(loans))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.batchConcurrency)
	for i := range loans {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = calculator.Calculate(loans[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *handler) respondResults(w http.ResponseWriter, r *http.Request, op string, start time.Time, loans []eir.LoanData, results []eir.Result, warnings []string, includeCashFlows bool) {
	if !includeCashFlows {
		for i := range results {
			results[i].CashFlows = nil
		}
	}
	for i := range loans {
		warnings = append(warnings, validation.ValidateLoan(loans[i])...)
	}

	response := batchResponse{
		RequestID: RequestIDFromContext(r.Context()),
		Results:   results,
		Warnings:  warnings,
	}
	for _, result := range results {
		if result.Completed() {
			response.Completed++
		} else {
			response.Failed++
		}
	}

	var csvBuf bytes.Buffer
	if err := output.CsvFormat(&csvBuf, results); err != nil {
		h.logger.Warn("failed to render CSV",
			zap.String("op", op),
			zap.Error(err),
		)
	} else {
		response.CSV = csvBuf.String()
	}

	elapsed := time.Since(start)
	response.Duration = elapsed.String()

	h.logger.Info("eir batch computed",
		zap.String("op", op),
		zap.String("requestId", response.RequestID),
		zap.Int("loans", len(results)),
		zap.Int("completed", response.Completed),
		zap.Int("failed", response.Failed),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func (h *handler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
		return
	}
	h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	requestID := RequestIDFromContext(r.Context())
	h.logger.Error("eir request failed",
		zap.String("op", op),
		zap.String("requestId", requestID),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg, "requestId": requestID})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
