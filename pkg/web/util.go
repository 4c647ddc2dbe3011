package web

import (
	"context"
	"reflect"
	"runtime"
	"time"

	"github.com/liut/insightchat/pkg/chat"
	"github.com/liut/insightchat/pkg/metrics"
	"github.com/liut/insightchat/pkg/models/convo"
)

func nameOfFunction(f interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(f).Pointer()).Name()
}

// meteredAnalyzer counts and times analyze calls.
type meteredAnalyzer struct {
	next chat.Analyzer
}

func (m meteredAnalyzer) Analyze(ctx context.Context, in convo.AnalyzeRequest) (*convo.AnalysisResult, error) {
	start := time.Now()
	res, err := m.next.Analyze(ctx, in)
	mt := metrics.Global()
	mt.Questions.Inc()
	mt.AnalyzeSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		mt.QuestionFails.Inc()
	}
	return res, err
}
