package convo

// HistoryRecord one item of GET /api/v1/history, owned by the server
type HistoryRecord struct {
	QueryID       string   `json:"query_id"`
	Question      string   `json:"question"`
	UserID        *string  `json:"user_id,omitempty"`
	Status        string   `json:"status"`
	ExecutedSQL   *string  `json:"executed_sql,omitempty"`
	ResultRows    *int     `json:"result_rows,omitempty"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type HistoryRecords []HistoryRecord

// User returns the user id or "anonymous".
func (z *HistoryRecord) User() string {
	if z.UserID == nil || len(*z.UserID) == 0 {
		return "anonymous"
	}
	return *z.UserID
}

// Rows returns result_rows or 0.
func (z *HistoryRecord) Rows() int {
	if z.ResultRows == nil {
		return 0
	}
	return *z.ResultRows
}

// SQL ...
func (z *HistoryRecord) SQL() string {
	if z.ExecutedSQL == nil {
		return ""
	}
	return *z.ExecutedSQL
}

// IsSuccess ...
func (z *HistoryRecord) IsSuccess() bool {
	return z.Status == StatusSuccess
}
