package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	stable "stablecore/native/stable"
	"stablecore/observability"
	"stablecore/services/stabled/storage"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress string
	BearerToken   string
}

// Server hosts the receipt ingestion and audit endpoints for stabled.
type Server struct {
	cfg     Config
	storage *storage.Storage
	logger  *slog.Logger
	metrics *observability.StableMetrics
}

// New constructs a new HTTP server over the audit store.
func New(cfg Config, store *storage.Storage, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("storage required")
	}
	if strings.TrimSpace(cfg.BearerToken) == "" {
		return nil, fmt.Errorf("bearer token required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, storage: store, logger: logger, metrics: observability.Stable()}, nil
}

// Run starts the HTTP server and blocks until context cancellation.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("server not configured")
	}
	srv := &http.Server{Addr: s.cfg.ListenAddress, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", slog.String("address", s.cfg.ListenAddress))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", otelhttp.NewHandler(http.HandlerFunc(s.handleHealth), "stabled.health"))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/v1/receipts/mints", otelhttp.NewHandler(s.requireAdmin(http.HandlerFunc(s.handleMints)), "stabled.mints"))
	mux.Handle("/v1/receipts/redeems", otelhttp.NewHandler(s.requireAdmin(http.HandlerFunc(s.handleRedeems)), "stabled.redeems"))
	mux.Handle("/v1/summary", otelhttp.NewHandler(s.requireAdmin(http.HandlerFunc(s.handleSummary)), "stabled.summary"))
	mux.Handle("/v1/oracle/price", otelhttp.NewHandler(s.requireAdmin(http.HandlerFunc(s.handlePrice)), "stabled.price"))
	return mux
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.cfg.BearerToken)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// receiptPayload is the wire form shared by both flows. Addresses travel as
// 0x-prefixed hex, amounts as decimal strings.
type receiptPayload struct {
	User           string `json:"user"`
	Benefactor     string `json:"benefactor"`
	CollateralMint string `json:"collateral_mint"`
	Amount         string `json:"amount"`
	FeeAmount      string `json:"fee_amount"`
	NetAmount      string `json:"net_amount"`
	OraclePriceUSD uint64 `json:"oracle_price_usd"`
	OneToOneAmount string `json:"one_to_one_amount"`
	OracleAmount   string `json:"oracle_amount"`
	ResultAmount   string `json:"result_amount"`
	OccurredAt     int64  `json:"occurred_at"`
}

type parsedReceipt struct {
	user           stable.Address
	benefactor     stable.Address
	collateralMint stable.Address
	amount         uint64
	feeAmount      uint64
	netAmount      uint64
	oneToOne       uint64
	oracleAmount   uint64
	resultAmount   uint64
}

func parsePayload(payload receiptPayload) (parsedReceipt, error) {
	parsed := parsedReceipt{}
	var err error
	if parsed.user, err = stable.ParseAddress(payload.User); err != nil {
		return parsed, fmt.Errorf("user: %w", err)
	}
	if parsed.benefactor, err = stable.ParseAddress(payload.Benefactor); err != nil {
		return parsed, fmt.Errorf("benefactor: %w", err)
	}
	if parsed.collateralMint, err = stable.ParseAddress(payload.CollateralMint); err != nil {
		return parsed, fmt.Errorf("collateral_mint: %w", err)
	}
	fields := []struct {
		name  string
		raw   string
		value *uint64
	}{
		{"amount", payload.Amount, &parsed.amount},
		{"fee_amount", payload.FeeAmount, &parsed.feeAmount},
		{"net_amount", payload.NetAmount, &parsed.netAmount},
		{"one_to_one_amount", payload.OneToOneAmount, &parsed.oneToOne},
		{"oracle_amount", payload.OracleAmount, &parsed.oracleAmount},
		{"result_amount", payload.ResultAmount, &parsed.resultAmount},
	}
	for _, field := range fields {
		raw := strings.TrimSpace(field.raw)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return parsed, fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = value
	}
	return parsed, nil
}

func (s *Server) handleMints(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReceipts(w, r, s.storage.ListMints)
	case http.MethodPost:
		s.ingestMint(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRedeems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listReceipts(w, r, s.storage.ListRedeems)
	case http.MethodPost:
		s.ingestRedeem(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) ingestMint(w http.ResponseWriter, r *http.Request) {
	var payload receiptPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	parsed, err := parsePayload(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	receipt := stable.MintReceipt{
		User:           parsed.user,
		Benefactor:     parsed.benefactor,
		CollateralMint: parsed.collateralMint,
		Amount:         parsed.amount,
		FeeAmount:      parsed.feeAmount,
		NetAmount:      parsed.netAmount,
		OraclePriceUSD: payload.OraclePriceUSD,
		OneToOneAmount: parsed.oneToOne,
		OracleAmount:   parsed.oracleAmount,
		MintAmount:     parsed.resultAmount,
		Timestamp:      payload.OccurredAt,
	}
	id, err := s.storage.RecordMint(r.Context(), receipt)
	if err != nil {
		s.logger.Error("record mint receipt", slog.String("error", err.Error()))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.recordSample(r.Context(), receipt.CollateralMint.Hex(), receipt.OraclePriceUSD, receipt.Timestamp)
	s.metrics.ObserveOperation("mint", receipt.CollateralMint.Hex(), receipt.MintAmount, 0)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) ingestRedeem(w http.ResponseWriter, r *http.Request) {
	var payload receiptPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	parsed, err := parsePayload(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	receipt := stable.RedeemReceipt{
		User:           parsed.user,
		Benefactor:     parsed.benefactor,
		CollateralMint: parsed.collateralMint,
		Amount:         parsed.amount,
		FeeAmount:      parsed.feeAmount,
		NetAmount:      parsed.netAmount,
		OraclePriceUSD: payload.OraclePriceUSD,
		OneToOneAmount: parsed.oneToOne,
		OracleAmount:   parsed.oracleAmount,
		RedeemAmount:   parsed.resultAmount,
		Timestamp:      payload.OccurredAt,
	}
	id, err := s.storage.RecordRedeem(r.Context(), receipt)
	if err != nil {
		s.logger.Error("record redeem receipt", slog.String("error", err.Error()))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	s.recordSample(r.Context(), receipt.CollateralMint.Hex(), receipt.OraclePriceUSD, receipt.Timestamp)
	s.metrics.ObserveOperation("redeem", receipt.CollateralMint.Hex(), receipt.RedeemAmount, 0)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (s *Server) recordSample(ctx context.Context, vault string, priceUSD uint64, observedAt int64) {
	if err := s.storage.RecordOracleSample(ctx, vault, priceUSD, observedAt); err != nil {
		s.logger.Error("record oracle sample", slog.String("error", err.Error()))
		return
	}
	s.metrics.SetOraclePrice(vault, priceUSD)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("vault"))
	if raw == "" {
		http.Error(w, "vault required", http.StatusBadRequest)
		return
	}
	// Samples are stored under the canonical hex form, so the query
	// parameter must be normalized through the same address parser.
	vault, err := stable.ParseAddress(raw)
	if err != nil {
		http.Error(w, "invalid vault", http.StatusBadRequest)
		return
	}
	sample, ok, err := s.storage.LatestOracleSample(r.Context(), vault.Hex())
	if err != nil {
		s.logger.Error("load oracle sample", slog.String("error", err.Error()))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "no samples", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"vault":       sample.Vault,
		"price_usd":   sample.PriceUSD,
		"observed_at": sample.ObservedAtUnix,
	})
}

func (s *Server) listReceipts(w http.ResponseWriter, r *http.Request, load func(context.Context, int) ([]storage.ReceiptRecord, error)) {
	limit := 100
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	records, err := load(r.Context(), limit)
	if err != nil {
		s.logger.Error("list receipts", slog.String("error", err.Error()))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"receipts": records})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary, err := s.storage.Summarize(r.Context())
	if err != nil {
		s.logger.Error("summarize receipts", slog.String("error", err.Error()))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"mint_count":    summary.MintCount,
		"redeem_count":  summary.RedeemCount,
		"mint_volume":   summary.MintVolume.String(),
		"redeem_volume": summary.RedeemVolume.String(),
	})
}
