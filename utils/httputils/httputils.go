// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the HTTP plumbing shared by the lookup clients.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"net/url"
	"os"
	"strings"
	"time"
)

// ClientOptions configures the HTTP client used against lookup services.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout for a whole request, response body included
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Keeps session cookies between requests
	EnableCookies bool
}

// NewClient builds an http.Client with tracing and default headers.
func NewClient(options *ClientOptions) *http.Client {
	if options == nil {
		options = &ClientOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          4,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "mailgeo/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	timeout := 30 * time.Second
	if options.Timeout > 0 {
		timeout = options.Timeout
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &AppendRequestHeadersRoundTripper{
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "*/*",
			},
			Transport: loggingTransport,
		},
	}

	if options.EnableCookies {
		// cookiejar.New only fails with a nil PublicSuffixList option set
		jar, _ := cookiejar.New(nil)
		client.Jar = &EnforceExpirationCookieJar{
			Target:   jar,
			Duration: 10 * time.Minute,
		}
	}

	return client
}

/////////////////////////////////////////
/// RountTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			lines[i] = fmt.Sprintf("%c %s", prefix, line)
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

// the geocoding API key travels in the query string.
func redactKey(dump []byte) string {
	s := string(dump)

	i := strings.Index(s, "key=")
	if i == -1 {
		return s
	}

	j := i + len("key=")
	for j < len(s) && s[j] != '&' && s[j] != ' ' && s[j] != '\n' {
		j++
	}

	return s[:i] + "key=REDACTED" + s[j:]
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(redactKey(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	return t.Transport.RoundTrip(req)
}

////////////////////////////////////////////////////

// EnforceExpirationCookieJar wraps a cookie jar, setting an expiration on
// session cookies that come without one.
type EnforceExpirationCookieJar struct {
	Target   *cookiejar.Jar
	Duration time.Duration
}

// SetCookies sets the cookies.
func (t *EnforceExpirationCookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	now := time.Now()

	for _, cookie := range cookies {
		if cookie.Expires.IsZero() {
			cookie.Expires = now.Add(t.Duration)
		}
	}

	t.Target.SetCookies(u, cookies)
}

// Cookies returns the cookies.
func (t *EnforceExpirationCookieJar) Cookies(u *url.URL) []*http.Cookie {
	return t.Target.Cookies(u)
}
