package render

import (
	"html/template"
	"strconv"
	"sync"

	"github.com/liut/insightchat/pkg/models/convo"
)

// kinds of Op
const (
	OpAppend = "append"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Op is one change of the chat transcript, applied by the page script in order.
type Op struct {
	Kind string        `json:"op"`
	ID   string        `json:"id,omitempty"`
	HTML template.HTML `json:"html,omitempty"`
}

// HTMLView renders into a queue of Ops. With a sink attached every op is handed
// over as it happens, otherwise ops wait for Drain.
type HTMLView struct {
	mu   sync.Mutex
	seq  int
	ops  []Op
	sink func(Op)
}

// NewHTMLView ...
func NewHTMLView() *HTMLView {
	return &HTMLView{}
}

// Attach routes ops to sink until the returned func is called.
func (v *HTMLView) Attach(sink func(Op)) (detach func()) {
	v.mu.Lock()
	pending := v.ops
	v.ops = nil
	v.sink = sink
	v.mu.Unlock()
	for _, op := range pending {
		sink(op)
	}
	return func() {
		v.mu.Lock()
		v.sink = nil
		v.mu.Unlock()
	}
}

// Drain returns and forgets the queued ops.
func (v *HTMLView) Drain() []Op {
	v.mu.Lock()
	defer v.mu.Unlock()
	ops := v.ops
	v.ops = nil
	if ops == nil {
		ops = []Op{}
	}
	return ops
}

func (v *HTMLView) nextID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seq++
	return "msg-" + strconv.Itoa(v.seq)
}

func (v *HTMLView) push(op Op) {
	v.mu.Lock()
	sink := v.sink
	if sink == nil {
		v.ops = append(v.ops, op)
	}
	v.mu.Unlock()
	if sink != nil {
		sink(op)
	}
}

func (v *HTMLView) ShowTurn(role convo.Role, content string) {
	id := v.nextID()
	v.push(Op{Kind: OpAppend, ID: id, HTML: TurnHTML(id, role, content)})
}

func (v *HTMLView) ShowLoading() func() {
	v.push(Op{Kind: OpAppend, ID: LoadingID, HTML: LoadingHTML()})
	return func() {
		v.push(Op{Kind: OpRemove, ID: LoadingID})
	}
}

func (v *HTMLView) ShowResult(res *convo.AnalysisResult) {
	id := v.nextID()
	v.push(Op{Kind: OpAppend, ID: id, HTML: ResultHTML(id, res)})
}

func (v *HTMLView) Clear() {
	v.mu.Lock()
	v.ops = nil
	v.mu.Unlock()
	v.push(Op{Kind: OpClear})
}
