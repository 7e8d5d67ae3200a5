package transcriber

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"
)

const uploadTimeout = 2 * time.Minute

// TracedClient is an HTTP client that records per-phase timings of every
// request. Groq uploads are timed with it so slow dictations can be pinned
// on DNS, TLS or the server.
type TracedClient struct {
	client  *http.Client
	warmURL string
}

func NewTracedClient(warmURL string) *TracedClient {
	tr := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &TracedClient{
		warmURL: warmURL,
		client:  &http.Client{Timeout: uploadTimeout, Transport: tr},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// phaseClock fills NetworkMetrics from httptrace callbacks.
type phaseClock struct {
	m                            NetworkMetrics
	getConn, dns, dial, tls      time.Time
	conn, headers, sent, firstRB time.Time
}

func (p *phaseClock) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) { p.getConn = time.Now() },
		GotConn: func(info httptrace.GotConnInfo) {
			p.conn = time.Now()
			p.m.ConnWait = p.conn.Sub(p.getConn)
			p.m.ConnReused = info.Reused
		},
		DNSStart:          func(httptrace.DNSStartInfo) { p.dns = time.Now() },
		DNSDone:           func(httptrace.DNSDoneInfo) { p.m.DNS = time.Since(p.dns) },
		ConnectStart:      func(string, string) { p.dial = time.Now() },
		ConnectDone:       func(string, string, error) { p.m.TCP = time.Since(p.dial) },
		TLSHandshakeStart: func() { p.tls = time.Now() },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			p.m.TLS = time.Since(p.tls)
			p.m.TLSProtocol = tls.VersionName(cs.Version)
		},
		WroteHeaders: func() {
			p.headers = time.Now()
			p.m.ReqHeaders = p.headers.Sub(p.conn)
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			p.sent = time.Now()
			p.m.ReqBody = p.sent.Sub(p.headers)
		},
		GotFirstResponseByte: func() {
			p.firstRB = time.Now()
			p.m.TTFB = p.firstRB.Sub(p.sent)
		},
	}
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	var clock phaseClock
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), clock.trace()))
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	clock.m.Download = time.Since(clock.firstRB)
	clock.m.Total = time.Since(start)

	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    &clock.m,
	}, nil
}

// Warm opens a connection to the API host ahead of the first upload and
// reports how long the TLS handshake took.
func (c *TracedClient) Warm() time.Duration {
	if c.warmURL == "" {
		return 0
	}
	var clock phaseClock
	ctx := httptrace.WithClientTrace(context.Background(), clock.trace())
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.warmURL, nil)
	if err != nil {
		return 0
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return clock.m.TLS
}
