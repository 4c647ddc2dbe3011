// Package render turns conversation turns, analysis results and history records
// into escaped HTML fragments, and drives them into a web page or a terminal.
package render

import (
	"bytes"
	"html/template"
	"time"

	"golang.org/x/text/language"

	"github.com/liut/insightchat/pkg/history"
	"github.com/liut/insightchat/pkg/models/convo"
	"github.com/liut/insightchat/pkg/reltime"
)

// LoadingID is the element id of the pending indicator.
const LoadingID = "loading-message"

// HistoryErrorHint follows the message of a failed history load.
const HistoryErrorHint = "Please make sure the analysis API service is running."

const fragments = `
{{define "avatar"}}<div class="message-avatar">{{if eq . "user"}}U{{else}}AI{{end}}</div>{{end}}

{{define "turn"}}<div class="message {{.Role}}" id="{{.ID}}">{{template "avatar" .Role}}<div class="message-content"><div class="message-text">{{.Content}}</div></div></div>{{end}}

{{define "loading"}}<div class="message assistant" id="{{.}}">{{template "avatar" "assistant"}}<div class="message-content"><div class="loading-message"><div class="loading-dot"></div><div class="loading-dot"></div><div class="loading-dot"></div></div></div></div>{{end}}

{{define "table"}}<table class="data-table"><thead><tr>{{range .Cols}}<th>{{.}}</th>{{end}}</tr></thead><tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody></table>{{end}}

{{define "result"}}<div class="message assistant" id="{{.ID}}">{{template "avatar" "assistant"}}<div class="message-content">
{{- with .R}}
{{- if and .Report (not .HasInsights) (not .HasData)}}<div class="message-text report">{{.Report}}</div>{{end}}
{{- if .HasInsights}}<div class="result-section"><div class="result-header">Key insights</div><div class="result-insights">{{range .Insights}}<div class="insight-item">{{.}}</div>{{end}}</div></div>{{end}}
{{- end}}
{{- if .Table}}<div class="result-section"><div class="result-header">Data</div><div class="result-table">{{template "table" .Table}}</div></div>{{end}}
{{- with .R}}
{{- if .ExecutedSQL}}<div class="result-section"><div class="result-header">SQL</div><pre class="result-sql">{{.ExecutedSQL}}</pre></div>{{end}}
<div class="result-meta"><div class="meta-item"><span class="meta-label">Query ID:</span><span class="meta-value">{{dash .QueryID}}</span></div><div class="meta-item"><span class="meta-label">Execution time:</span><span class="meta-value">{{seconds .ExecutionTime}}</span></div><div class="meta-item"><span class="meta-label">Status:</span><span class="meta-value">{{dash .Status}}</span></div></div>
{{- end}}</div></div>{{end}}

{{define "card"}}<div class="history-item"><div class="history-question">{{.Question}}</div><div class="history-meta">
<div class="history-meta-item"><span>ID:</span><span>{{.QueryID}}</span></div>
<div class="history-meta-item"><span>User:</span><span>{{.User}}</span></div>
<div class="history-meta-item"><span>Rows:</span><span>{{.Rows}}</span></div>
<div class="history-meta-item"><span>Time:</span><span>{{seconds .ExecutionTime}}</span></div>
<div class="history-meta-item"><span>Created:</span><span>{{.Created}}</span></div>
<div class="history-meta-item"><span>Status:</span><span class="status {{if .IsSuccess}}status-success{{else}}status-failed{{end}}">{{.Status}}</span></div>
</div>{{if .SQL}}<div class="history-sql">{{.SQL}}</div>{{end}}</div>{{end}}

{{define "history"}}{{if .Err}}<div class="error-card"><h3>Load failed</h3><p>{{.Err.Error}}</p><p>{{hint}}</p></div>
{{- else if not .Cards}}<div class="empty-state"><h3>No history yet</h3><p>Ask a question on the chat page first.</p></div>
{{- else}}{{range .Cards}}{{template "card" .}}{{end}}{{end}}{{end}}
`

var tpl = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"dash":    OrDash,
	"seconds": Seconds,
	"hint":    func() string { return HistoryErrorHint },
}).Parse(fragments))

func execute(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger().Warnw("render fragment fail", "name", name, "err", err)
		return ""
	}
	return template.HTML(buf.String())
}

// Table is a result data set with its cells already stringified.
type Table struct {
	Cols []string
	Rows [][]string
}

// NewTable takes the columns from the first record, in order. Cells missing
// from later records are shown as Placeholder.
func NewTable(data []*convo.Record) *Table {
	if len(data) == 0 {
		return nil
	}
	t := &Table{Cols: data[0].Keys(), Rows: make([][]string, 0, len(data))}
	for _, rec := range data {
		row := make([]string, len(t.Cols))
		for i, col := range t.Cols {
			v, _ := rec.Get(col)
			row[i] = Cell(v)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// TurnHTML draws a plain text message.
func TurnHTML(id string, role convo.Role, content string) template.HTML {
	return execute("turn", map[string]any{"ID": id, "Role": string(role), "Content": content})
}

// LoadingHTML ...
func LoadingHTML() template.HTML {
	return execute("loading", LoadingID)
}

// ResultHTML draws an analysis result: the report only when there is nothing
// structured, then insights, table, SQL and the metadata strip.
func ResultHTML(id string, res *convo.AnalysisResult) template.HTML {
	if res == nil {
		res = new(convo.AnalysisResult)
	}
	return execute("result", map[string]any{"ID": id, "R": res, "Table": NewTable(res.Data)})
}

// Card is a history record ready to draw.
type Card struct {
	convo.HistoryRecord
	Created string
}

// NewCards dates each record for a viewer of locale tag in zone loc.
func NewCards(records convo.HistoryRecords, now time.Time, tag language.Tag, loc *time.Location) []*Card {
	cards := make([]*Card, len(records))
	for i := range records {
		cards[i] = &Card{HistoryRecord: records[i], Created: reltime.Format(records[i].CreatedAt, now, tag, loc)}
	}
	return cards
}

// HistoryHTML draws the error panel, the empty state or one card per record.
func HistoryHTML(page *history.Page, now time.Time, tag language.Tag, loc *time.Location) template.HTML {
	return execute("history", map[string]any{
		"Err":   page.Err,
		"Cards": NewCards(page.Records, now, tag, loc),
	})
}
