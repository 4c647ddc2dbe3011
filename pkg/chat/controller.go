// Package chat holds the conversation controller: the in-memory log of turns,
// the send/receive cycle against the analysis backend and the snapshot policy.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/liut/insightchat/pkg/models/convo"
)

const (
	DefaultUserID   = "web_user"
	DefaultLifetime = 24 * time.Hour

	// ErrorTurnFormat is the assistant reply drawn when a send fails.
	ErrorTurnFormat = "Sorry, an error occurred: %s\n\nPlease make sure the analysis API service is running."
)

var (
	ErrEmptyQuestion     = errors.New("empty question")
	ErrSendInFlight      = errors.New("another question is pending")
	ErrConversationReset = errors.New("conversation was reset while pending")
	ErrNoStore           = errors.New("no snapshot store")
	ErrNilAnalyzer       = errors.New("chat: analyzer must not be nil")
)

// State of the send guard
type State int32

const (
	StateIdle State = iota
	StateSending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	default:
		return fmt.Sprintf("state %d", int32(s))
	}
}

// Config ...
type Config struct {
	Analyzer Analyzer
	Store    SnapshotStore
	View     Renderer

	Key        string        // snapshot key
	UserID     string        // sent as user_id
	SaveResult bool          // sent as save_result
	Lifetime   time.Duration // snapshots older than this are not restored
	Timeout    time.Duration // 0: no bound on the analyze call

	Now func() time.Time
}

// Controller owns one conversation. Send, StartNew and RestoreOnLoad are its only mutators.
type Controller struct {
	cfg Config

	mu    sync.Mutex
	log   convo.Log
	state State
	gen   uint64 // bumped by StartNew

	// draw orders view updates and saves of a landing reply against StartNew
	draw sync.Mutex
}

// New ...
func New(cfg Config) (*Controller, error) {
	if cfg.Analyzer == nil {
		return nil, ErrNilAnalyzer
	}
	if cfg.Store == nil {
		cfg.Store = noStore{}
	}
	if cfg.View == nil {
		cfg.View = discardView{}
	}
	if len(cfg.UserID) == 0 {
		cfg.UserID = DefaultUserID
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{cfg: cfg, log: convo.Log{}}, nil
}

// Key returns the snapshot key.
func (c *Controller) Key() string {
	return c.cfg.Key
}

// Log returns a copy of the conversation log.
func (c *Controller) Log() convo.Log {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log.Clone()
}

// Len ...
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.log)
}

// State ...
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send asks one question. It is a no-op returning ErrEmptyQuestion for blank text and
// ErrSendInFlight while a previous question is pending. A backend failure is drawn as an
// assistant reply, rolled back from the log and returned.
func (c *Controller) Send(ctx context.Context, text string) error {
	question := strings.TrimSpace(text)
	if len(question) == 0 {
		return ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		logger().Debugw("send ignored, pending", "key", c.cfg.Key)
		return ErrSendInFlight
	}
	c.state = StateSending
	gen := c.gen
	prior := c.log.Clone()
	c.log = append(c.log, convo.Turn{Role: convo.RoleUser, Content: question})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}()

	c.cfg.View.ShowTurn(convo.RoleUser, question)
	removeLoading := c.cfg.View.ShowLoading()

	res, err := c.analyze(ctx, convo.AnalyzeRequest{
		Question:            question,
		UserID:              c.cfg.UserID,
		SaveResult:          c.cfg.SaveResult,
		ConversationHistory: prior,
	})
	removeLoading()

	if err != nil {
		return c.fail(gen, err)
	}

	c.draw.Lock()
	defer c.draw.Unlock()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		logger().Infow("drop result of reset conversation", "key", c.cfg.Key, "queryID", res.QueryID)
		return ErrConversationReset
	}
	c.log = append(c.log, convo.Turn{Role: convo.RoleAssistant, Content: res.Summary()})
	snap := convo.NewSnapshot(c.log, c.cfg.Now())
	c.mu.Unlock()

	c.cfg.View.ShowResult(res)
	c.persist(context.WithoutCancel(ctx), snap)
	return nil
}

func (c *Controller) analyze(ctx context.Context, in convo.AnalyzeRequest) (*convo.AnalysisResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	res, err := c.cfg.Analyzer.Analyze(ctx, in)
	if err == nil && res == nil {
		res = new(convo.AnalysisResult)
	}
	return res, err
}

// fail rolls back the pending user turn and draws the error reply.
func (c *Controller) fail(gen uint64, cause error) error {
	c.draw.Lock()
	defer c.draw.Unlock()
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return ErrConversationReset
	}
	if n := len(c.log); n > 0 && c.log[n-1].Role == convo.RoleUser {
		c.log = c.log[:n-1]
	}
	c.mu.Unlock()

	logger().Infow("send fail", "key", c.cfg.Key, "err", cause)
	c.cfg.View.ShowTurn(convo.RoleAssistant, fmt.Sprintf(ErrorTurnFormat, cause))
	return cause
}

// StartNew clears the log and the transcript and stores the empty conversation.
// A question pending at that moment is dropped when it returns.
func (c *Controller) StartNew(ctx context.Context) {
	c.draw.Lock()
	defer c.draw.Unlock()
	c.mu.Lock()
	c.log = convo.Log{}
	c.gen++
	snap := convo.NewSnapshot(c.log, c.cfg.Now())
	c.mu.Unlock()

	c.cfg.View.Clear()
	c.persist(ctx, snap)
}

// RestoreOnLoad seeds the log from a stored snapshot that is well formed, younger than
// the lifetime and not empty. The transcript is left blank: the restored turns only serve
// as context for the next question.
func (c *Controller) RestoreOnLoad(ctx context.Context) bool {
	snap, err := c.cfg.Store.GetSnapshot(ctx, c.cfg.Key)
	if err != nil {
		logger().Debugw("no snapshot restored", "key", c.cfg.Key, "err", err)
		return false
	}
	if err = snap.Validate(); err != nil {
		logger().Debugw("ignore malformed snapshot", "key", c.cfg.Key, "err", err)
		return false
	}
	if !snap.Fresh(c.cfg.Now(), c.cfg.Lifetime) {
		logger().Debugw("ignore expired snapshot", "key", c.cfg.Key, "ts", snap.Timestamp)
		return false
	}
	if len(snap.History) == 0 {
		return false
	}

	c.mu.Lock()
	c.log = snap.History.Clone()
	c.mu.Unlock()
	logger().Infow("restored conversation", "key", c.cfg.Key, "turns", len(snap.History))
	return true
}

func (c *Controller) persist(ctx context.Context, snap *convo.Snapshot) {
	if err := c.cfg.Store.PutSnapshot(ctx, c.cfg.Key, snap); err != nil {
		logger().Infow("save conversation fail, keep in memory only", "key", c.cfg.Key, "err", err)
	}
}
