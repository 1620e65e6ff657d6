// Package api exposes the reconciliation engine over HTTP for the
// dashboard: imports, runs, transaction browsing, and stats.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rentledger/reconcile-backend/internal/api/dto"
	"github.com/rentledger/reconcile-backend/internal/application/importer"
	"github.com/rentledger/reconcile-backend/internal/application/reconcile"
	"github.com/rentledger/reconcile-backend/internal/domain/matcher"
	"github.com/rentledger/reconcile-backend/internal/domain/transaction"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/config"
	"github.com/rentledger/reconcile-backend/internal/infrastructure/storage"
)

// APIServer wires the engine's entry points to HTTP handlers.
type APIServer struct {
	repo        storage.Repository
	importer    *importer.Importer
	coordinator *reconcile.Coordinator
	cfg         *config.Config
	logger      *slog.Logger
}

// NewAPIServer creates the server and its application services.
func NewAPIServer(repo storage.Repository, cfg *config.Config, logger *slog.Logger) *APIServer {
	if logger == nil {
		logger = slog.Default()
	}
	matchCfg := matcher.Config{
		DateToleranceDays: cfg.Matching.DateToleranceDays,
		ValueEpsilon:      cfg.Matching.ValueEpsilon,
		NameThreshold:     cfg.Matching.NameThreshold,
	}
	return &APIServer{
		repo:        repo,
		importer:    importer.NewImporter(repo, logger.With("system", "import")),
		coordinator: reconcile.NewCoordinator(repo, matchCfg, logger.With("system", "reconcile")),
		cfg:         cfg,
		logger:      logger,
	}
}

// Router builds the gin engine with middleware and all routes.
func (s *APIServer) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/health", s.getHealth)
		api.GET("/stats", s.getStats)

		api.GET("/transactions", s.listTransactions)
		api.GET("/transactions/:id", s.getTransaction)
		api.DELETE("/transactions/:id", s.deleteTransaction)
		api.POST("/transactions/:id/restore", s.restoreTransaction)
		api.POST("/transactions/import", s.importTransactions)

		api.POST("/reconcile", s.runReconciliation)
		api.GET("/runs", s.listRuns)
	}

	return router
}

func (s *APIServer) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *APIServer) getStats(c *gin.Context) {
	stats, err := s.repo.GetStats()
	if err != nil {
		s.logger.Error("failed to fetch stats", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Total:            stats.Total,
		PendingLedger:    stats.PendingLedger,
		PendingStatement: stats.PendingStatement,
		Reconciled:       stats.Reconciled,
		Deleted:          stats.Deleted,
		ReconciledValue:  stats.ReconciledValue,
	})
}

func (s *APIServer) listTransactions(c *gin.Context) {
	params := dto.DefaultTransactionListParams()
	params.Status = c.Query("status")
	params.Source = c.Query("source")
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && limit > 0 {
		params.Limit = limit
	}
	if offset, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && offset >= 0 {
		params.Offset = offset
	}

	status := transaction.Status(params.Status)
	if params.Status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, dto.ValidationError(fmt.Sprintf("unknown status %q", params.Status)))
		return
	}

	result, err := s.repo.List(storage.TransactionFilters{
		Status: status,
		Source: params.Source,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		s.logger.Error("failed to list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(result.Transactions)),
		TotalCount:   result.TotalCount,
		Limit:        result.Limit,
		Offset:       result.Offset,
	}
	for _, t := range result.Transactions {
		response.Transactions = append(response.Transactions, toTransactionResponse(t))
	}

	c.JSON(http.StatusOK, response)
}

func (s *APIServer) getTransaction(c *gin.Context) {
	t, err := s.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NotFoundError("transaction"))
			return
		}
		s.logger.Error("failed to fetch transaction", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(t))
}

func (s *APIServer) deleteTransaction(c *gin.Context) {
	var req dto.DeleteRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	if err := s.repo.SoftDelete(c.Param("id"), req.Reason); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NotFoundError("transaction"))
			return
		}
		s.logger.Error("failed to delete transaction", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *APIServer) restoreTransaction(c *gin.Context) {
	if err := s.repo.Restore(c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, dto.NotFoundError("transaction"))
			return
		}
		s.logger.Error("failed to restore transaction", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *APIServer) importTransactions(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, dto.ValidationError("records must not be empty"))
		return
	}

	records := make([]*transaction.Transaction, 0, len(req.Records))
	for i, r := range req.Records {
		t, err := toTransaction(r)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError(fmt.Sprintf("record %d: %v", i, err)))
			return
		}
		records = append(records, t)
	}

	result, err := s.importer.Import(c.Request.Context(), records)
	if err != nil {
		s.logger.Error("import failed", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{
		Inserted:             result.Inserted,
		PersistedDuplicates:  result.PersistedDuplicates,
		IntraBatchDuplicates: result.IntraBatchDuplicates,
		Errors:               result.Errors,
		ErrorDetails:         result.ErrorDetails,
	})
}

func (s *APIServer) runReconciliation(c *gin.Context) {
	var req dto.ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	opts := reconcile.Options{
		PageSize:        s.cfg.Matching.PageSize,
		CommitBatchSize: s.cfg.Matching.CommitBatchSize,
	}
	if req.PageSize > 0 {
		opts.PageSize = req.PageSize
	}
	if req.CommitBatchSize > 0 {
		opts.CommitBatchSize = req.CommitBatchSize
	}
	if req.Cutoff != "" {
		cutoff, err := time.Parse("2006-01-02", req.Cutoff)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ValidationError("cutoff must be YYYY-MM-DD"))
			return
		}
		opts.Cutoff = cutoff
	}

	report, err := s.coordinator.Run(c.Request.Context(), opts)
	if err != nil {
		s.logger.Error("reconciliation run failed", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.ReconcileResponse{
		RunID:      report.RunID,
		Processed:  report.Processed,
		Matched:    report.Matched,
		Duplicates: report.Duplicates,
		Errors:     report.Errors,
		Reports:    make([]dto.RecordReportResponse, 0, len(report.Reports)),
	}
	for _, r := range report.Reports {
		response.Reports = append(response.Reports, dto.RecordReportResponse{
			LedgerID:    r.LedgerID,
			StatementID: r.StatementID,
			Matched:     r.Matched,
			Detail:      r.Detail,
		})
	}

	c.JSON(http.StatusOK, response)
}

func (s *APIServer) listRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	runs, err := s.repo.ListRuns(limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{Runs: make([]dto.RunResponse, 0, len(runs))}
	for _, r := range runs {
		response.Runs = append(response.Runs, dto.RunResponse{
			ID:          r.ID,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
			Cutoff:      r.Cutoff,
			Processed:   r.Processed,
			Matched:     r.Matched,
			Duplicates:  r.Duplicates,
			Errors:      r.Errors,
			Status:      r.Status,
		})
	}
	response.Count = len(response.Runs)

	c.JSON(http.StatusOK, response)
}

// toTransaction parses an import record into the engine's entity.
func toTransaction(r dto.ImportRecord) (*transaction.Transaction, error) {
	date, err := parseDate(r.Date)
	if err != nil {
		return nil, err
	}
	return &transaction.Transaction{
		Date:          date,
		Value:         r.Value,
		Name:          r.Name,
		Depositor:     r.Depositor,
		Car:           r.Car,
		PaymentMethod: r.PaymentMethod,
		Source:        r.Source,
		Status:        transaction.Status(r.Status),
	}, nil
}

// parseDate accepts "2006-01-02" or RFC 3339.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func toTransactionResponse(t *transaction.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:                   t.ID,
		Date:                 t.DayLabel(),
		Value:                t.Value,
		Name:                 t.Name,
		Depositor:            t.Depositor,
		Car:                  t.Car,
		PaymentMethod:        t.PaymentMethod,
		Source:               t.Source,
		Status:               string(t.Status),
		Confidence:           t.Confidence,
		MatchedTransactionID: t.MatchedTransactionID,
		DeleteReason:         t.DeleteReason,
		CreatedAt:            t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:            t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
