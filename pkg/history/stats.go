package history

import (
	"fmt"

	"github.com/liut/insightchat/pkg/models/convo"
)

// Stats summarizes the fetched page, not the whole server log.
type Stats struct {
	Total     int
	Successes int
	SumTime   float64 // seconds, records without execution_time count as 0
}

// Compute ...
func Compute(records convo.HistoryRecords) (s Stats) {
	s.Total = len(records)
	for i := range records {
		if records[i].IsSuccess() {
			s.Successes++
		}
		if records[i].ExecutionTime != nil {
			s.SumTime += *records[i].ExecutionTime
		}
	}
	return
}

// AvgTime in seconds, 0 when empty.
func (s Stats) AvgTime() float64 {
	if s.Total == 0 {
		return 0
	}
	return s.SumTime / float64(s.Total)
}

// SuccessRate in percent, 0 when empty.
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successes) * 100 / float64(s.Total)
}

// AvgTimeText like "2.50s", or "0s" when empty.
func (s Stats) AvgTimeText() string {
	if s.Total == 0 {
		return "0s"
	}
	return fmt.Sprintf("%.2fs", s.AvgTime())
}

// SuccessRateText like "75.0%", or "0%" when empty.
func (s Stats) SuccessRateText() string {
	if s.Total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", s.SuccessRate())
}
