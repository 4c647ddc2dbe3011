package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/text/language"

	"github.com/liut/insightchat/pkg/history"
	"github.com/liut/insightchat/pkg/models/convo"
)

// MarkdownView prints the transcript to a terminal as Markdown.
type MarkdownView struct {
	w    io.Writer
	conv *md.Converter
}

// NewMarkdownView ...
func NewMarkdownView(w io.Writer) *MarkdownView {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())
	return &MarkdownView{w: w, conv: conv}
}

// Markdown converts a fragment, falling back to its raw markup.
func (v *MarkdownView) Markdown(h template.HTML) string {
	out, err := v.conv.ConvertString(string(h))
	if err != nil {
		logger().Infow("convert to markdown fail", "err", err)
		return string(h)
	}
	return strings.TrimSpace(out)
}

func (v *MarkdownView) print(h template.HTML) {
	fmt.Fprintf(v.w, "%s\n\n", v.Markdown(h))
}

func (v *MarkdownView) ShowTurn(role convo.Role, content string) {
	if role == convo.RoleUser {
		fmt.Fprintf(v.w, "> %s\n\n", strings.ReplaceAll(content, "\n", "\n> "))
		return
	}
	fmt.Fprintf(v.w, "%s\n\n", content)
}

func (v *MarkdownView) ShowLoading() func() {
	fmt.Fprint(v.w, "analyzing...\n")
	start := time.Now()
	return func() {
		logger().Debugw("analyze returned", "elapsed", time.Since(start))
	}
}

func (v *MarkdownView) ShowResult(res *convo.AnalysisResult) {
	v.print(ResultHTML("", res))
}

func (v *MarkdownView) Clear() {
	fmt.Fprint(v.w, "--- new conversation ---\n\n")
}

// ShowHistory prints the stats line and the cards of page.
func (v *MarkdownView) ShowHistory(page *history.Page, now time.Time, tag language.Tag, loc *time.Location) {
	if page.Err == nil {
		fmt.Fprintf(v.w, "Total: %d  Avg time: %s  Success: %s\n\n",
			page.Stats.Total, page.Stats.AvgTimeText(), page.Stats.SuccessRateText())
	}
	v.print(HistoryHTML(page, now, tag, loc))
}
