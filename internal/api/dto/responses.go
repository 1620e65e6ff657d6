package dto

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	Value                float64 `json:"value"`
	Name                 string  `json:"name,omitempty"`
	Depositor            string  `json:"depositor,omitempty"`
	Car                  string  `json:"car,omitempty"`
	PaymentMethod        string  `json:"payment_method"`
	Source               string  `json:"source,omitempty"`
	Status               string  `json:"status"`
	Confidence           int     `json:"confidence"`
	MatchedTransactionID string  `json:"matched_transaction_id,omitempty"`
	DeleteReason         string  `json:"delete_reason,omitempty"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"total_count"`
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
}

// ImportResponse is returned after an import batch is processed.
type ImportResponse struct {
	Inserted             int      `json:"inserted"`
	PersistedDuplicates  int      `json:"persisted_duplicates"`
	IntraBatchDuplicates int      `json:"intra_batch_duplicates"`
	Errors               int      `json:"errors"`
	ErrorDetails         []string `json:"error_details,omitempty"`
}

// RecordReportResponse is one per-entry audit line of a reconciliation
// run.
type RecordReportResponse struct {
	LedgerID    string `json:"ledger_id"`
	StatementID string `json:"statement_id,omitempty"`
	Matched     bool   `json:"matched"`
	Detail      string `json:"detail"`
}

// ReconcileResponse is returned after a reconciliation run.
type ReconcileResponse struct {
	RunID      int64                  `json:"run_id"`
	Processed  int                    `json:"processed"`
	Matched    int                    `json:"matched"`
	Duplicates int                    `json:"duplicates"`
	Errors     int                    `json:"errors"`
	Reports    []RecordReportResponse `json:"reports"`
}

// RunResponse represents one recorded reconciliation run.
type RunResponse struct {
	ID          int64  `json:"id"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	Cutoff      string `json:"cutoff,omitempty"`
	Processed   int    `json:"processed"`
	Matched     int    `json:"matched"`
	Duplicates  int    `json:"duplicates"`
	Errors      int    `json:"errors"`
	Status      string `json:"status"`
}

// RunListResponse lists recorded runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// StatsResponse contains aggregate transaction counts.
type StatsResponse struct {
	Total            int     `json:"total"`
	PendingLedger    int     `json:"pending_ledger"`
	PendingStatement int     `json:"pending_statement"`
	Reconciled       int     `json:"reconciled"`
	Deleted          int     `json:"deleted"`
	ReconciledValue  float64 `json:"reconciled_value"`
}
