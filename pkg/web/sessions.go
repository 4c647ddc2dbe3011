package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cupogo/andvari/models/oid"

	"github.com/liut/insightchat/pkg/chat"
	"github.com/liut/insightchat/pkg/metrics"
	"github.com/liut/insightchat/pkg/render"
	"github.com/liut/insightchat/pkg/settings"
)

// session is one browser tab family, keyed by cookie.
type session struct {
	id   oid.OID
	ctrl *chat.Controller
	view *render.HTMLView
	seen time.Time
}

type sessionBuilder func(key string, view chat.Renderer) (*chat.Controller, error)

type sessions struct {
	mu    sync.Mutex
	items map[oid.OID]*session
	build sessionBuilder
	idle  time.Duration
}

func newSessions(build sessionBuilder, idle time.Duration) *sessions {
	return &sessions{items: make(map[oid.OID]*session), build: build, idle: idle}
}

func snapshotKey(id oid.OID) string {
	return settings.Current.SnapshotKey + ":" + id.String()
}

// open replaces the session of id with a fresh one, as a page load does.
func (ss *sessions) open(id oid.OID) (*session, error) {
	view := render.NewHTMLView()
	ctrl, err := ss.build(snapshotKey(id), view)
	if err != nil {
		return nil, err
	}
	sess := &session{id: id, ctrl: ctrl, view: view, seen: time.Now()}

	ss.mu.Lock()
	ss.sweep(sess.seen)
	ss.items[id] = sess
	n := len(ss.items)
	ss.mu.Unlock()

	metrics.Global().Sessions.Set(float64(n))
	return sess, nil
}

// get returns the session of id. One lost by a restart is reopened and restored.
func (ss *sessions) get(ctx context.Context, id oid.OID) (*session, error) {
	ss.mu.Lock()
	sess, ok := ss.items[id]
	if ok {
		sess.seen = time.Now()
	}
	ss.mu.Unlock()
	if ok {
		return sess, nil
	}
	sess, err := ss.open(id)
	if err != nil {
		return nil, err
	}
	if sess.ctrl.RestoreOnLoad(ctx) {
		metrics.Global().Restored.Inc()
	}
	return sess, nil
}

// count returns the log length of a live session, 0 when none.
func (ss *sessions) count(id oid.OID) int {
	ss.mu.Lock()
	sess, ok := ss.items[id]
	ss.mu.Unlock()
	if !ok {
		return 0
	}
	return sess.ctrl.Len()
}

// sweep drops idle sessions, caller holds the lock
func (ss *sessions) sweep(now time.Time) {
	if ss.idle <= 0 {
		return
	}
	for id, sess := range ss.items {
		if now.Sub(sess.seen) > ss.idle && sess.ctrl.State() == chat.StateIdle {
			delete(ss.items, id)
			logger().Debugw("drop idle session", "id", id)
		}
	}
}

// sessionID reads the session cookie, issuing a new id when absent or invalid.
func sessionID(w http.ResponseWriter, r *http.Request) oid.OID {
	if c, err := r.Cookie(settings.Current.CookieName); err == nil {
		if id := oid.Cast(c.Value); !id.IsZero() {
			return id
		}
	}
	id := oid.NewID(oid.OtEvent)
	http.SetCookie(w, &http.Cookie{
		Name:     settings.Current.CookieName,
		Value:    id.String(),
		Path:     settings.Current.CookiePath,
		MaxAge:   settings.Current.CookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
