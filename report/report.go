// Package report renders captured transactions as human-readable text:
// a curl-style "> / <" transcript per hop, an aligned summary table for
// whole chains, and the raw per-origin debug streams. The renderer only
// formats; everything it prints comes from the capture views.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/lgc202/httptrail/trail"
)

const dividerWidth = 72

// DefaultMaxBody caps how many body bytes a transcript shows per direction.
const DefaultMaxBody = 2048

// Renderer formats capture views. The zero value is not usable; construct
// with New.
type Renderer struct {
	maxBody int
	color   bool
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithMaxBody caps the displayed body bytes per direction. Bodies beyond the
// cap end with an ellipsis marker naming the hidden byte count. n <= 0 shows
// everything.
func WithMaxBody(n int) Option {
	return func(r *Renderer) { r.maxBody = n }
}

// WithColor toggles ANSI-colored status codes. Off by default so rendered
// strings stay byte-stable for logs and files.
func WithColor(enabled bool) Option {
	return func(r *Renderer) { r.color = enabled }
}

// New constructs a Renderer with DefaultMaxBody and coloring off.
func New(opts ...Option) *Renderer {
	r := &Renderer{maxBody: DefaultMaxBody}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Render formats a single transaction as a transcript block.
func (r *Renderer) Render(v trail.TransactionView) string {
	var b strings.Builder
	r.writeTransaction(&b, v, 0, 1)
	return b.String()
}

// RenderAll formats a whole chain, one block per hop in dispatch order.
func (r *Renderer) RenderAll(views []trail.TransactionView) string {
	if len(views) == 0 {
		return "(no transactions captured)\n"
	}
	var b strings.Builder
	for i, v := range views {
		if i > 0 {
			b.WriteByte('\n')
		}
		r.writeTransaction(&b, v, i, len(views))
	}
	return b.String()
}

// RenderSummary formats the condensed chain view as an aligned table, one
// row per hop.
func (r *Renderer) RenderSummary(s trail.Summary) string {
	if s.Len() == 0 {
		return "(no transactions captured)\n"
	}
	table := uitable.New()
	table.MaxColWidth = 80
	table.Separator = "  "
	table.AddRow("#", "METHOD", "URL", "PROTO", "TARGET", "STATUS", "LENGTH", "REASON")
	for i := 0; i < s.Len(); i++ {
		table.AddRow(
			strconv.Itoa(i),
			s.Methods[i],
			s.URLs[i],
			s.Protos[i],
			s.Targets[i],
			r.status(s.StatusCodes[i]),
			strconv.FormatInt(s.ContentLengths[i], 10),
			s.Reasons[i],
		)
	}
	return table.String() + "\n"
}

// RenderDebug formats the captured debug streams, one block per origin in
// sorted order so repeated renders line up.
func (r *Renderer) RenderDebug(debug map[string]string) string {
	if len(debug) == 0 {
		return "(no debug telemetry captured)\n"
	}
	origins := make([]string, 0, len(debug))
	for k := range debug {
		origins = append(origins, k)
	}
	sort.Strings(origins)

	var b strings.Builder
	for i, origin := range origins {
		if i > 0 {
			b.WriteByte('\n')
		}
		writeDivider(&b, "debug "+origin)
		stream := debug[origin]
		b.WriteString(stream)
		if !strings.HasSuffix(stream, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (r *Renderer) writeTransaction(b *strings.Builder, v trail.TransactionView, i, total int) {
	title := fmt.Sprintf("hop %d/%d  %s %s", i+1, total, v.Request.Method, v.Request.URL)
	writeDivider(b, title)

	fmt.Fprintf(b, "> %s %s %s\n", v.Request.Method, v.Request.Target, v.Request.Proto)
	writeHeaders(b, "> ", v.Request.Headers)
	b.WriteString(">\n")
	r.writeBody(b, v.Request.Body)

	fmt.Fprintf(b, "< %s %s %s", v.Response.Proto, r.status(v.Response.StatusCode), v.Response.Reason)
	if v.Duration > 0 {
		fmt.Fprintf(b, "  (%.3fs)", v.Duration)
	}
	b.WriteByte('\n')
	writeHeaders(b, "< ", v.Response.Headers)
	b.WriteString("<\n")
	r.writeBody(b, v.Response.Body)
}

func writeDivider(b *strings.Builder, title string) {
	b.WriteString("-- ")
	b.WriteString(title)
	b.WriteByte(' ')
	if pad := dividerWidth - len(title) - 4; pad > 0 {
		b.WriteString(strings.Repeat("-", pad))
	}
	b.WriteByte('\n')
}

// writeHeaders prints one line per header value with keys sorted, so the
// transcript is stable across renders while values stay grouped per name.
func writeHeaders(b *strings.Builder, prefix string, headers map[string][]string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, val := range headers[k] {
			fmt.Fprintf(b, "%s%s: %s\n", prefix, k, val)
		}
	}
}

func (r *Renderer) writeBody(b *strings.Builder, body string) {
	if body == "" {
		return
	}
	shown := body
	hidden := 0
	if r.maxBody > 0 && len(shown) > r.maxBody {
		cut := r.maxBody
		// Never split a UTF-8 sequence at the cap.
		for cut > 0 && !utf8.RuneStart(shown[cut]) {
			cut--
		}
		hidden = len(shown) - cut
		shown = shown[:cut]
	}
	text, ok := printable(shown)
	if !ok {
		fmt.Fprintf(b, "<binary body: %d bytes>\n", len(body))
		return
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
	if hidden > 0 {
		fmt.Fprintf(b, "... (%d more bytes)\n", hidden)
	}
}

// printable escapes control characters so a transcript never garbles the
// terminal; bodies that are not valid UTF-8 are reported, not printed.
func printable(s string) (string, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}
	if !strings.ContainsFunc(s, isUnsafe) {
		return s, true
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if isUnsafe(c) {
			b.WriteString(fmt.Sprintf("\\x%02x", c))
			continue
		}
		b.WriteRune(c)
	}
	return b.String(), true
}

func isUnsafe(c rune) bool {
	return unicode.IsControl(c) && c != '\n' && c != '\r' && c != '\t'
}

func (r *Renderer) status(code int) string {
	s := strconv.Itoa(code)
	if !r.color {
		return s
	}
	switch {
	case code >= 200 && code < 300:
		return color.GreenString(s)
	case code >= 300 && code < 400:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}
