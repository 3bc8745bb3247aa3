package trail

import "net/http"

// RequestView is the read-only projection of a recorded request.
type RequestView struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Proto   string      `json:"proto"`
	Target  string      `json:"target"`
	Headers http.Header `json:"headers"`
	Body    string      `json:"body"`
}

// ResponseView is the read-only projection of a recorded response. The
// reported ContentLength resolves from the Content-Length header when one
// was on the wire, otherwise from the number of body bytes that arrived.
type ResponseView struct {
	StatusCode    int         `json:"statusCode"`
	Reason        string      `json:"reason"`
	Proto         string      `json:"proto"`
	Headers       http.Header `json:"headers"`
	Body          string      `json:"body"`
	ContentLength int64       `json:"contentLength"`
}

// TransactionView pairs the two sides of one exchange. Views are value
// copies built per query; reading them never mutates the history, so
// identical state yields identical views.
type TransactionView struct {
	ID       string       `json:"id"`
	Request  RequestView  `json:"request"`
	Response ResponseView `json:"response"`

	// Duration is elapsed wall-clock seconds for the hop.
	Duration float64 `json:"duration"`
}

func viewOf(tx Transaction) TransactionView {
	return TransactionView{
		ID: tx.ID,
		Request: RequestView{
			Method:  tx.Request.Method,
			URL:     tx.Request.URL,
			Proto:   tx.Request.Proto,
			Target:  tx.Request.Target,
			Headers: tx.Request.Headers.Clone(),
			Body:    string(tx.Request.Body),
		},
		Response: ResponseView{
			StatusCode:    tx.Response.StatusCode,
			Reason:        tx.Response.Reason,
			Proto:         tx.Response.Proto,
			Headers:       tx.Response.Headers.Clone(),
			Body:          string(tx.Response.Body),
			ContentLength: tx.EffectiveContentLength(),
		},
		Duration: tx.Duration.Seconds(),
	}
}

// Summary is the condensed columnar projection of a chain: index i of every
// column describes the i-th transaction, so columns always align.
type Summary struct {
	Methods        []string `json:"method"`
	URLs           []string `json:"url"`
	Protos         []string `json:"proto"`
	Targets        []string `json:"target"`
	StatusCodes    []int    `json:"statusCode"`
	ContentLengths []int64  `json:"contentLength"`
	Reasons        []string `json:"reason"`
}

// Len reports the number of summarized transactions.
func (s Summary) Len() int { return len(s.Methods) }

func summarize(txs []Transaction) Summary {
	s := Summary{
		Methods:        make([]string, 0, len(txs)),
		URLs:           make([]string, 0, len(txs)),
		Protos:         make([]string, 0, len(txs)),
		Targets:        make([]string, 0, len(txs)),
		StatusCodes:    make([]int, 0, len(txs)),
		ContentLengths: make([]int64, 0, len(txs)),
		Reasons:        make([]string, 0, len(txs)),
	}
	for _, tx := range txs {
		s.Methods = append(s.Methods, tx.Request.Method)
		s.URLs = append(s.URLs, tx.Request.URL)
		s.Protos = append(s.Protos, tx.Request.Proto)
		s.Targets = append(s.Targets, tx.Request.Target)
		s.StatusCodes = append(s.StatusCodes, tx.Response.StatusCode)
		s.ContentLengths = append(s.ContentLengths, tx.EffectiveContentLength())
		s.Reasons = append(s.Reasons, tx.Response.Reason)
	}
	return s
}

// LastTransaction returns the view of the most recently recorded exchange.
// With redirects followed, that is the final hop of the latest chain.
func (c *Client) LastTransaction() (TransactionView, bool) {
	tx, ok := c.History().Last()
	if !ok {
		return TransactionView{}, false
	}
	return viewOf(tx), true
}

// Transactions returns views of every recorded exchange in dispatch order.
// The result is empty, never nil, when nothing was recorded.
func (c *Client) Transactions() []TransactionView {
	txs := c.History().Snapshot()
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, viewOf(tx))
	}
	return out
}

// Summary returns the condensed columnar projection of the recorded chain.
func (c *Client) Summary() Summary {
	return summarize(c.History().Snapshot())
}
