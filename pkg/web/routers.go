package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chirender "github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/liut/insightchat/pkg/models/convo"
	"github.com/liut/insightchat/pkg/render"
	"github.com/liut/insightchat/pkg/settings"
)

type M = chirender.M

const msgTooMany = "too many questions, slow down"

// sendLimiter bounds questions per client address
func (s *server) sendLimiter() (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(settings.Current.SendRate)
	if err != nil {
		return nil, fmt.Errorf("parse send rate %q: %w", settings.Current.SendRate, err)
	}
	mw := stdlib.NewMiddleware(limiter.New(memory.NewStore(), rate),
		stdlib.WithLimitReachedHandler(s.limitReached))
	return mw.Handler, nil
}

// limitReached answers a rejected question in the shape its caller reads:
// a stream with a notice and a done event, or a json failure.
func (s *server) limitReached(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "-sse") {
		apiFail(w, r, http.StatusTooManyRequests, msgTooMany)
		return
	}
	count := s.sess.count(sessionID(w, r))
	streamHeader(w)
	notice := render.Op{
		Kind: render.OpAppend,
		ID:   "notice-limit",
		HTML: render.TurnHTML("notice-limit", convo.RoleAssistant, msgTooMany),
	}
	writeEvent(w, "1", &notice)
	writeEvent(w, "2", &DoneEvent{Kind: esDone, Count: count, Error: msgTooMany})
	logger().Infow("question rejected by rate limit", "path", r.URL.Path)
}

func (s *server) strapRouter() error {
	limit, err := s.sendLimiter()
	if err != nil {
		return err
	}

	s.ar.Get("/ping", handlerPing)
	s.ar.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.ar.Route("/api", func(r chi.Router) {
		r.Post("/session", s.postSession)
		r.Post("/new", s.postNew)
		r.Get("/history", s.getHistory)
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/chat", s.postChat)
			r.Post("/chat-{suffix}", s.postChat)
		})
	})

	if s.cfg.DocHandler != nil {
		s.ar.Get("/", s.cfg.DocHandler.ServeHTTP)
		s.ar.NotFound(s.cfg.DocHandler.ServeHTTP)
	}
	return nil
}

func handlerPing(w http.ResponseWriter, r *http.Request) {
	chirender.Data(w, r, []byte("Pong\n"))
}

func apiFail(w http.ResponseWriter, r *http.Request, status int, err interface{}) {
	res := M{
		"status": status,
		"error":  err,
	}
	switch ret := err.(type) {
	case error:
		res["message"] = ret.Error()
		res["error"] = ret.Error()
	case fmt.Stringer:
		res["message"] = ret.String()
	case string, *string, []byte:
		res["message"] = ret
	}
	chirender.JSON(w, r, res)
}

type RespDone struct {
	Status int `json:"status"`
	Data   any `json:"data,omitempty"`
	Count  int `json:"count"`
}

func apiOk(w http.ResponseWriter, r *http.Request, args ...any) {
	res := &RespDone{}
	if len(args) > 0 && args[0] != nil {
		res.Data = args[0]
		if len(args) > 1 {
			if c, ok := args[1].(int); ok {
				res.Count = c
			}
		}
	}

	chirender.JSON(w, r, res)
}
