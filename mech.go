// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package bbsmech

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Version is the version of this package.
const Version = "0.1.0"

// DefaultEndpoint is the dictionary site that community BBS posts are sent to.
const DefaultEndpoint = "https://dic.nicovideo.jp"

// maxResponseSize bounds how much of a post response we'll read into memory.
const maxResponseSize = 4 << 20

// HTTPClient represents the functionality we need from an *http.Client, or
// similar.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Board identifies the BBS to post to.
type Board struct {
	// LandingURL is the page embedding the BBS, where the posting credential
	// is scraped from (e.g., https://ch.nicovideo.jp/<channel>/bbs).
	LandingURL string

	// ID is the board's identifier on the dictionary site (e.g., ch2598430).
	ID string

	// Endpoint is the scheme and host posts are sent to. If empty,
	// DefaultEndpoint is used.
	Endpoint string
}

// PostURL returns the URL posts to this board are sent to.
func (b Board) PostURL() string {
	endpoint := b.Endpoint
	if len(endpoint) == 0 {
		endpoint = DefaultEndpoint
	}

	return strings.TrimSuffix(endpoint, "/") + "/b/c/" + url.PathEscape(b.ID) + "/p"
}

// Client is a client for making mechanized posts to a community BBS. Posting
// this way is unsupported outside of a browser, and the board is not expecting
// a high rate of automated calls. Please keep that in mind.
//
// A Client holds no per-post state, and is safe for concurrent use. The
// credential needed for a post is derived during each call to Submit, and is
// never shared between calls.
type Client struct {
	board      Board
	classifier Classifier

	c HTTPClient
}

// Option configures a Client.
type Option func(*Client)

// WithClassifier overrides the Classifier used to interpret post responses.
// The default is DefaultClassifier.
func WithClassifier(cl Classifier) Option {
	return func(c *Client) {
		if cl != nil {
			c.classifier = cl
		}
	}
}

// New returns a new *Client for posting to board b.
//
// The HTTPClient is used as-is, so request timeouts should be configured on
// it. It should not have a cookie jar: the Cookie header this package sends
// must reach the board exactly as built.
func New(c HTTPClient, b Board, opts ...Option) (*Client, error) {
	if c == nil {
		return nil, errors.New("must provide an http client")
	}

	if len(b.LandingURL) == 0 {
		return nil, errors.New("must provide the board landing page URL")
	}

	if len(b.ID) == 0 {
		return nil, errors.New("must provide the board ID")
	}

	client := &Client{
		board:      b,
		classifier: DefaultClassifier,
		c:          c,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Board returns the board this client posts to.
func (c *Client) Board() Board { return c.board }

func (c *Client) get(ctx context.Context, url, cookie string) (*http.Response, error) {
	req, err := getReq(ctx, url, cookie)
	if err != nil {
		return nil, err
	}

	return c.c.Do(req)
}

func (c *Client) postForm(ctx context.Context, url, cookie string, val url.Values) (*http.Response, error) {
	req, err := postFormReq(ctx, url, cookie, val)
	if err != nil {
		return nil, err
	}

	return c.c.Do(req)
}

// postCookie builds the Cookie header value for a post. The board's cookie
// parser wants exactly this: no space after the semicolon.
func postCookie(credential, sessionCookie string) string {
	return "hash_key=" + credential + ";" + sessionCookie
}

// postValues builds the form for a post. Encode sorts by key, which happens to
// give the order the browser sends: FROM, MESSAGE, magic.
func postValues(from, message string) url.Values {
	return url.Values{
		"FROM":    []string{from},
		"MESSAGE": []string{message},
		"magic":   []string{"dummy"},
	}
}

// Submit posts message to the board as from, using sessionCookie as the
// logged-in identity of the poster.
//
// A returned error is always a *TransportError, and means the post could not
// be made. That includes failing to derive the posting credential. Otherwise,
// the board's answer is in the Result; rejections by the board (like posting
// too often) are not errors.
//
// Submit does not retry. If the Result is OutcomeRateLimited it's up to the
// caller to wait at least MinPostInterval before trying again.
func (c *Client) Submit(ctx context.Context, sessionCookie, from, message string) (Result, error) {
	credential, err := c.DeriveCredential(ctx, sessionCookie)
	if err != nil {
		return Result{}, &TransportError{Op: "derive credential", Err: err}
	}

	u := c.board.PostURL()

	resp, err := c.postForm(ctx, u, postCookie(credential, sessionCookie), postValues(from, message))
	if err != nil {
		return Result{}, &TransportError{Op: "post", Err: errors.Wrapf(err, "failed to POST to %q", u)}
	}

	defer func() { _ = resp.Body.Close() }()

	// The board doesn't use status codes to tell us anything useful, so we
	// don't look at them. Whatever it has to say is in the body.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, &TransportError{Op: "post", Err: errors.Wrap(err, "failed to read response body")}
	}

	return c.classifier.Classify(body), nil
}
