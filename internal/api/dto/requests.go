package dto

// ImportRecord is one record in an import request. Dates accept either
// "2006-01-02" or RFC 3339.
type ImportRecord struct {
	Date          string  `json:"date"`
	Value         float64 `json:"value"`
	Name          string  `json:"name,omitempty"`
	Depositor     string  `json:"depositor,omitempty"`
	Car           string  `json:"car,omitempty"`
	PaymentMethod string  `json:"payment_method"`
	Source        string  `json:"source,omitempty"`
	Status        string  `json:"status"`
}

// ImportRequest is the request body for importing a batch of records.
type ImportRequest struct {
	Records []ImportRecord `json:"records"`
}

// ReconcileRequest is the request body for triggering a reconciliation
// run. All fields are optional.
type ReconcileRequest struct {
	// Cutoff excludes records dated before it, "2006-01-02".
	Cutoff string `json:"cutoff,omitempty"`

	PageSize        int `json:"page_size,omitempty"`
	CommitBatchSize int `json:"commit_batch_size,omitempty"`
}

// DeleteRequest is the optional request body for soft-deleting a record.
type DeleteRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TransactionListParams represents query parameters for listing
// transactions.
type TransactionListParams struct {
	Status string `json:"status"`
	Source string `json:"source"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// DefaultTransactionListParams returns default values for transaction
// list params.
func DefaultTransactionListParams() TransactionListParams {
	return TransactionListParams{
		Limit:  50,
		Offset: 0,
	}
}
