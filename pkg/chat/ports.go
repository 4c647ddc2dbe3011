package chat

import (
	"context"

	"github.com/liut/insightchat/pkg/models/convo"
)

// Analyzer is the remote analysis backend.
type Analyzer interface {
	Analyze(ctx context.Context, in convo.AnalyzeRequest) (*convo.AnalysisResult, error)
}

// SnapshotStore persists the conversation between page loads.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, key string) (*convo.Snapshot, error)
	PutSnapshot(ctx context.Context, key string, snap *convo.Snapshot) error
}

// Renderer draws the visible transcript. It is never asked to draw a restored log.
type Renderer interface {
	// ShowTurn draws a plain text message, user questions and error replies alike.
	ShowTurn(role convo.Role, content string)
	// ShowLoading draws the pending indicator and returns its remover.
	ShowLoading() (remove func())
	// ShowResult draws a successful analysis.
	ShowResult(res *convo.AnalysisResult)
	// Clear empties the transcript and the input.
	Clear()
}

type discardView struct{}

func (discardView) ShowTurn(convo.Role, string) {}
func (discardView) ShowLoading() func() { return func() {} }
func (discardView) ShowResult(*convo.AnalysisResult) {}
func (discardView) Clear() {}

type noStore struct{}

func (noStore) GetSnapshot(context.Context, string) (*convo.Snapshot, error) {
	return nil, ErrNoStore
}
func (noStore) PutSnapshot(context.Context, string, *convo.Snapshot) error { return nil }
