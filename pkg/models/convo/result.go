package convo

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// consts of summary reduction
const (
	SummaryFallback    = "analysis complete."
	SummaryReportLimit = 500

	StatusSuccess = "success"
)

// AnalyzeRequest body of POST /api/v1/analyze
type AnalyzeRequest struct {
	Question            string `json:"question"`
	UserID              string `json:"user_id"`
	SaveResult          bool   `json:"save_result"`
	ConversationHistory Log    `json:"conversation_history"`
}

// AnalysisResult response of POST /api/v1/analyze, every field optional
type AnalysisResult struct {
	QueryID       string    `json:"query_id,omitempty"`
	Question      string    `json:"question,omitempty"`
	Status        string    `json:"status,omitempty"`
	ExecutionTime *float64  `json:"execution_time,omitempty"`
	Report        string    `json:"report,omitempty"`
	Insights      []string  `json:"insights,omitempty"`
	Data          []*Record `json:"data,omitempty"`
	ExecutedSQL   string    `json:"executed_sql,omitempty"`
	Timestamp     string    `json:"timestamp,omitempty"`
}

// HasInsights ...
func (z *AnalysisResult) HasInsights() bool {
	return len(z.Insights) > 0
}

// HasData ...
func (z *AnalysisResult) HasData() bool {
	return len(z.Data) > 0
}

// Summary reduces the result to the short text kept in the conversation log:
// insights joined by newline, else the head of report, else SummaryFallback.
func (z *AnalysisResult) Summary() string {
	if z.HasInsights() {
		return strings.Join(z.Insights, "\n")
	}
	if len(z.Report) > 0 {
		r := []rune(z.Report)
		if len(r) > SummaryReportLimit {
			r = r[:SummaryReportLimit]
		}
		return string(r)
	}
	return SummaryFallback
}

// Columns returns the keys of the first record, in order.
func (z *AnalysisResult) Columns() []string {
	if len(z.Data) == 0 {
		return nil
	}
	return z.Data[0].Keys()
}

// Record is one row of tabular data; it keeps the key order of the JSON object.
type Record struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewRecord builds a record from alternating key, value pairs.
func NewRecord(kvs ...any) *Record {
	r := &Record{om: orderedmap.New[string, any]()}
	for i := 0; i+1 < len(kvs); i += 2 {
		if k, ok := kvs[i].(string); ok {
			r.om.Set(k, kvs[i+1])
		}
	}
	return r
}

// Keys ...
func (r *Record) Keys() []string {
	if r == nil || r.om == nil {
		return nil
	}
	keys := make([]string, 0, r.om.Len())
	for pair := r.om.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Get ...
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.om == nil {
		return nil, false
	}
	return r.om.Get(key)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return err
	}
	r.om = om
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.om == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.om)
}
