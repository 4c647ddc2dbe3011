package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liut/insightchat/pkg/models/convo"
	"github.com/liut/insightchat/pkg/services/stores"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	reqs  []convo.AnalyzeRequest
	res   *convo.AnalysisResult
	err   error
	block chan struct{}
	enter chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, in convo.AnalyzeRequest) (*convo.AnalysisResult, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, in)
	f.mu.Unlock()
	if f.enter != nil {
		f.enter <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeAnalyzer) requests() []convo.AnalyzeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]convo.AnalyzeRequest(nil), f.reqs...)
}

type recordView struct {
	mu      sync.Mutex
	events  []string
	loading int
}

func (v *recordView) add(s string) {
	v.mu.Lock()
	v.events = append(v.events, s)
	v.mu.Unlock()
}

func (v *recordView) ShowTurn(role convo.Role, content string) { v.add(string(role) + ":" + content) }
func (v *recordView) ShowLoading() func() {
	v.mu.Lock()
	v.loading++
	v.mu.Unlock()
	v.add("loading")
	return func() {
		v.mu.Lock()
		v.loading--
		v.mu.Unlock()
		v.add("-loading")
	}
}
func (v *recordView) ShowResult(res *convo.AnalysisResult) { v.add("result:" + res.Summary()) }
func (v *recordView) Clear() { v.add("clear") }

func (v *recordView) list() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.events...)
}

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func newTestController(t *testing.T, an Analyzer, st SnapshotStore, view Renderer) *Controller {
	t.Helper()
	c, err := New(Config{
		Analyzer:   an,
		Store:      st,
		View:       view,
		Key:        "crewai_conversation",
		SaveResult: true,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return c
}

func TestNewRequiresAnalyzer(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrNilAnalyzer)
}

func TestSendAlternatesTurns(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{res: &convo.AnalysisResult{Status: "success", Insights: []string{"a", "b"}}}
	st := stores.NewMemorySnapshots()
	view := &recordView{}
	c := newTestController(t, an, st, view)

	for _, q := range []string{"q1", "  q2  ", "q3"} {
		require.NoError(t, c.Send(ctx, q))
	}

	log := c.Log()
	require.Len(t, log, 6)
	for i, turn := range log {
		if i%2 == 0 {
			assert.Equal(t, convo.RoleUser, turn.Role)
		} else {
			assert.Equal(t, convo.RoleAssistant, turn.Role)
			assert.Equal(t, "a\nb", turn.Content)
		}
	}
	assert.Equal(t, "q2", log[2].Content)
	assert.Equal(t, StateIdle, c.State())

	reqs := an.requests()
	require.Len(t, reqs, 3)
	assert.NotNil(t, reqs[0].ConversationHistory)
	assert.Empty(t, reqs[0].ConversationHistory)
	assert.Equal(t, log[:4], reqs[2].ConversationHistory)
	assert.Equal(t, "q3", reqs[2].Question)
	assert.Equal(t, DefaultUserID, reqs[2].UserID)
	assert.True(t, reqs[2].SaveResult)

	snap, err := st.GetSnapshot(ctx, "crewai_conversation")
	require.NoError(t, err)
	assert.Equal(t, log, snap.History)
	assert.Equal(t, "2026-05-04T12:00:00.000Z", snap.Timestamp)

	assert.Equal(t, []string{"user:q1", "loading", "-loading", "result:a\nb"}, view.list()[:4])
	assert.Zero(t, view.loading)
}

func TestSendIgnoresEmpty(t *testing.T) {
	an := &fakeAnalyzer{res: &convo.AnalysisResult{}}
	view := &recordView{}
	c := newTestController(t, an, nil, view)

	assert.ErrorIs(t, c.Send(context.Background(), " \n\t "), ErrEmptyQuestion)
	assert.Empty(t, an.requests())
	assert.Empty(t, view.list())
	assert.Zero(t, c.Len())
}

func TestSendFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{res: &convo.AnalysisResult{Report: "ok"}}
	st := stores.NewMemorySnapshots()
	view := &recordView{}
	c := newTestController(t, an, st, view)

	require.NoError(t, c.Send(ctx, "first"))
	before, _ := st.Raw("crewai_conversation")

	an.err = errors.New("HTTP 500: Internal Server Error")
	err := c.Send(ctx, "second")
	require.Error(t, err)

	log := c.Log()
	require.Len(t, log, 2)
	assert.Equal(t, "first", log[0].Content)

	after, _ := st.Raw("crewai_conversation")
	assert.Equal(t, before, after)

	events := view.list()
	assert.Equal(t, "assistant:Sorry, an error occurred: HTTP 500: Internal Server Error\n\nPlease make sure the analysis API service is running.", events[len(events)-1])
	assert.Zero(t, view.loading)
	assert.Equal(t, StateIdle, c.State())

	// next send carries only the successful exchange
	an.err = nil
	require.NoError(t, c.Send(ctx, "third"))
	reqs := an.requests()
	assert.Len(t, reqs[2].ConversationHistory, 2)
}

func TestSendSingleFlight(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{
		res:   &convo.AnalysisResult{Report: "done"},
		block: make(chan struct{}),
		enter: make(chan struct{}, 1),
	}
	c := newTestController(t, an, nil, nil)

	done := make(chan error, 1)
	go func() { done <- c.Send(ctx, "slow") }()
	<-an.enter
	assert.Equal(t, StateSending, c.State())

	assert.ErrorIs(t, c.Send(ctx, "impatient"), ErrSendInFlight)
	assert.Len(t, an.requests(), 1)
	assert.Equal(t, 1, c.Len())

	close(an.block)
	require.NoError(t, <-done)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, StateIdle, c.State())
}

func TestSendTimeout(t *testing.T) {
	an := &fakeAnalyzer{block: make(chan struct{})}
	c, err := New(Config{Analyzer: an, Timeout: 10 * time.Millisecond})
	require.NoError(t, err)

	err = c.Send(context.Background(), "never")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, c.Len())
}

func TestStartNewDropsPending(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{
		res:   &convo.AnalysisResult{Report: "late"},
		block: make(chan struct{}),
		enter: make(chan struct{}, 1),
	}
	st := stores.NewMemorySnapshots()
	view := &recordView{}
	c := newTestController(t, an, st, view)

	done := make(chan error, 1)
	go func() { done <- c.Send(ctx, "slow") }()
	<-an.enter

	c.StartNew(ctx)
	assert.Zero(t, c.Len())

	close(an.block)
	assert.ErrorIs(t, <-done, ErrConversationReset)
	assert.Zero(t, c.Len())
	assert.NotContains(t, view.list(), "result:late")

	snap, err := st.GetSnapshot(ctx, "crewai_conversation")
	require.NoError(t, err)
	assert.Empty(t, snap.History)
}

// gateView holds ShowResult until released.
type gateView struct {
	recordView
	entered chan struct{}
	release chan struct{}
}

func (v *gateView) ShowResult(res *convo.AnalysisResult) {
	v.entered <- struct{}{}
	<-v.release
	v.recordView.ShowResult(res)
}

func TestStartNewWaitsForLandingResult(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{res: &convo.AnalysisResult{Report: "x"}}
	st := stores.NewMemorySnapshots()
	view := &gateView{entered: make(chan struct{}), release: make(chan struct{})}
	c := newTestController(t, an, st, view)

	sent := make(chan error, 1)
	go func() { sent <- c.Send(ctx, "q") }()
	<-view.entered

	cleared := make(chan struct{})
	go func() {
		c.StartNew(ctx)
		close(cleared)
	}()
	select {
	case <-cleared:
		t.Fatal("StartNew finished while the reply was still being drawn")
	case <-time.After(50 * time.Millisecond):
	}

	close(view.release)
	require.NoError(t, <-sent)
	<-cleared

	events := view.list()
	assert.Equal(t, []string{"result:x", "clear"}, events[len(events)-2:])
	assert.Zero(t, c.Len())
	snap, err := st.GetSnapshot(ctx, "crewai_conversation")
	require.NoError(t, err)
	assert.Empty(t, snap.History)
}

type failStore struct{}

func (failStore) GetSnapshot(context.Context, string) (*convo.Snapshot, error) {
	return nil, errors.New("storage quota exceeded")
}

func (failStore) PutSnapshot(context.Context, string, *convo.Snapshot) error {
	return errors.New("storage quota exceeded")
}

func TestSendWithFailingStore(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{res: &convo.AnalysisResult{Report: "r"}}
	view := &recordView{}
	c := newTestController(t, an, failStore{}, view)

	assert.False(t, c.RestoreOnLoad(ctx))
	for i := 1; i <= 3; i++ {
		require.NoError(t, c.Send(ctx, "q"))
		assert.Equal(t, 2*i, c.Len())
	}
	assert.Len(t, an.requests()[2].ConversationHistory, 4)
	assert.Contains(t, view.list(), "result:r")

	c.StartNew(ctx)
	assert.Zero(t, c.Len())
	assert.Equal(t, "clear", view.list()[len(view.list())-1])
	assert.Equal(t, StateIdle, c.State())
}

func TestStartNew(t *testing.T) {
	ctx := context.Background()
	an := &fakeAnalyzer{res: &convo.AnalysisResult{Report: "r"}}
	st := stores.NewMemorySnapshots()
	view := &recordView{}
	c := newTestController(t, an, st, view)

	require.NoError(t, c.Send(ctx, "q"))
	c.StartNew(ctx)
	assert.Zero(t, c.Len())
	assert.Equal(t, "clear", view.list()[len(view.list())-1])

	raw, ok := st.Raw("crewai_conversation")
	require.True(t, ok)
	assert.JSONEq(t, `{"history":[],"timestamp":"2026-05-04T12:00:00.000Z"}`, string(raw))

	require.NoError(t, c.Send(ctx, "again"))
	assert.Empty(t, an.requests()[1].ConversationHistory)
}

func TestRestoreOnLoad(t *testing.T) {
	ctx := context.Background()
	saved := convo.Log{
		{Role: convo.RoleUser, Content: "old question"},
		{Role: convo.RoleAssistant, Content: "old answer"},
	}

	cases := []struct {
		name string
		raw  string
		snap *convo.Snapshot
		want bool
	}{
		{name: "one hour old", snap: convo.NewSnapshot(saved, fixedNow.Add(-time.Hour)), want: true},
		{name: "twenty five hours old", snap: convo.NewSnapshot(saved, fixedNow.Add(-25*time.Hour))},
		{name: "empty history", snap: convo.NewSnapshot(nil, fixedNow)},
		{name: "not json", raw: "{{{"},
		{name: "bad timestamp", raw: `{"history":[],"timestamp":"yesterday"}`},
		{name: "bad role", raw: `{"history":[{"role":"system","content":"x"}],"timestamp":"2026-05-04T11:00:00.000Z"}`},
		{name: "missing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := stores.NewMemorySnapshots()
			switch {
			case tc.snap != nil:
				require.NoError(t, st.PutSnapshot(ctx, "crewai_conversation", tc.snap))
			case len(tc.raw) > 0:
				st.PutRaw("crewai_conversation", []byte(tc.raw))
			}
			an := &fakeAnalyzer{res: &convo.AnalysisResult{}}
			view := &recordView{}
			c := newTestController(t, an, st, view)

			assert.Equal(t, tc.want, c.RestoreOnLoad(ctx))
			assert.Empty(t, view.list())
			if tc.want {
				assert.Equal(t, saved, c.Log())
				require.NoError(t, c.Send(ctx, "follow up"))
				assert.Equal(t, saved, an.requests()[0].ConversationHistory)
			} else {
				assert.Zero(t, c.Len())
			}
		})
	}
}

func TestRestoreWithoutStore(t *testing.T) {
	c := newTestController(t, &fakeAnalyzer{}, nil, nil)
	assert.False(t, c.RestoreOnLoad(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "sending", StateSending.String())
}
