package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/ajg/form"
	"github.com/go-chi/chi/v5"
	"github.com/jpillora/eventsource"
	"github.com/marcsv/go-binder/binder"

	"github.com/liut/insightchat/pkg/chat"
	"github.com/liut/insightchat/pkg/history"
	"github.com/liut/insightchat/pkg/metrics"
	"github.com/liut/insightchat/pkg/reltime"
	"github.com/liut/insightchat/pkg/render"
	"github.com/liut/insightchat/pkg/settings"
)

const esDone = "done"

// ChatRequest ...
type ChatRequest struct {
	Question string `json:"question" form:"question"`
}

// DoneEvent closes a chat event stream.
type DoneEvent struct {
	Kind  string `json:"op"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// postSession is called once per page load: a fresh controller seeded from the snapshot.
func (s *server) postSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sess.open(sessionID(w, r))
	if err != nil {
		apiFail(w, r, 500, err)
		return
	}
	restored := sess.ctrl.RestoreOnLoad(r.Context())
	if restored {
		metrics.Global().Restored.Inc()
	}
	apiOk(w, r, M{
		"restored": restored,
		"welcome":  s.cfg.Preset.Welcome,
		"examples": s.cfg.Preset.Examples,
	}, sess.ctrl.Len())
}

func (s *server) postChat(w http.ResponseWriter, r *http.Request) {
	var param ChatRequest
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	sess, err := s.sess.get(r.Context(), sessionID(w, r))
	if err != nil {
		apiFail(w, r, 500, err)
		return
	}

	if chi.URLParam(r, "suffix") == "sse" {
		s.chatStream(sess, &param, w, r)
		return
	}

	err = sess.ctrl.Send(r.Context(), param.Question)
	if errors.Is(err, chat.ErrEmptyQuestion) {
		apiFail(w, r, 400, err)
		return
	}
	if errors.Is(err, chat.ErrSendInFlight) {
		apiFail(w, r, 409, err)
		return
	}
	data := M{"ops": sess.view.Drain()}
	if err != nil {
		data["error"] = err.Error()
	}
	apiOk(w, r, data, sess.ctrl.Len())
}

// chatStream sends the render ops of one question as server-sent events.
func (s *server) chatStream(sess *session, param *ChatRequest, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	streamHeader(w)

	var (
		mu  sync.Mutex
		idx int
	)
	send := func(m any) {
		mu.Lock()
		defer mu.Unlock()
		idx++
		if writeEvent(w, strconv.Itoa(idx), m) {
			flusher.Flush()
		}
	}

	detach := sess.view.Attach(func(op render.Op) { send(&op) })
	err := sess.ctrl.Send(r.Context(), param.Question)
	detach()

	done := DoneEvent{Kind: esDone, Count: sess.ctrl.Len()}
	if err != nil {
		done.Error = err.Error()
	}
	send(&done)
	logger().Debugw("chat stream done", "count", done.Count, "events", idx)
}

func streamHeader(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Content-Type", "text/event-stream")
}

// writeEvent write one event, false on failure
func writeEvent(w io.Writer, id string, m any) bool {
	b, err := json.Marshal(m)
	if err != nil {
		logger().Infow("json marshal fail", "m", m, "err", err)
		return false
	}

	if err = eventsource.WriteEvent(w, eventsource.Event{
		ID:   id,
		Data: b,
	}); err != nil {
		logger().Infow("eventsource write fail", "err", err)
		return false
	}

	return true
}

func (s *server) postNew(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sess.get(r.Context(), sessionID(w, r))
	if err != nil {
		apiFail(w, r, 500, err)
		return
	}
	sess.ctrl.StartNew(r.Context())
	metrics.Global().Resets.Inc()
	apiOk(w, r, M{"ops": sess.view.Drain()}, sess.ctrl.Len())
}

// HistoryQuery is the query string of /api/history.
type HistoryQuery struct {
	Limit int    `form:"limit"`
	TZ    string `form:"tz"` // IANA zone of the viewer
}

func bindHistoryQuery(r *http.Request) HistoryQuery {
	var q HistoryQuery
	dec := form.NewDecoder(nil)
	dec.IgnoreUnknownKeys(true)
	if err := dec.DecodeValues(&q, r.URL.Query()); err != nil {
		logger().Debugw("bad history query", "query", r.URL.RawQuery, "err", err)
		q = HistoryQuery{TZ: r.URL.Query().Get("tz")}
	}
	if q.Limit == 0 {
		q.Limit = settings.Current.HistoryLimit
	}
	return q
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	q := bindHistoryQuery(r)
	page := s.viewer.Refresh(r.Context(), q.Limit)

	mt := metrics.Global()
	mt.HistoryLoads.Inc()
	if page.Err != nil {
		mt.HistoryFails.Inc()
	}

	tag := reltime.MatchString(r.Header.Get("Accept-Language"))
	data := M{
		"html":         render.HistoryHTML(page, s.now(), tag, reltime.Zone(q.TZ)),
		"limit":        page.Limit,
		"limits":       history.LimitChoices,
		"total":        page.Stats.Total,
		"avg_time":     page.Stats.AvgTimeText(),
		"success_rate": page.Stats.SuccessRateText(),
	}
	if page.Err != nil {
		data["error"] = page.Err.Error()
	}
	apiOk(w, r, data, page.Stats.Total)
}
