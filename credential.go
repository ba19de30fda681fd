// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package bbsmech

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// credentialSelector finds the iframe the board embeds its BBS with. The
// iframe's src carries the posting credential.
const credentialSelector = "#community-bbs"

// maxPageSize bounds how much of the landing page we'll read into memory.
const maxPageSize = 8 << 20

// DeriveCredential fetches the board's landing page using sessionCookie and
// pulls the posting credential (the "hash key") out of it. Every call makes a
// new request; the credential is never cached, as it may rotate.
//
// Any returned error is a *CredentialError.
func (c *Client) DeriveCredential(ctx context.Context, sessionCookie string) (string, error) {
	// The landing page for a community BBS looks like a normal channel page,
	// but the board itself is rendered in an iframe pointing at the dictionary
	// site. When the page is requested with a logged-in session cookie, the
	// iframe URL has the credential appended as its first query parameter:
	//
	//		<iframe id="community-bbs" src="https://dic.nicovideo.jp/b/c/ch2598430/?hash_key=...&...">
	//
	// That same value, sent back as the "hash_key" cookie, is what the POST
	// endpoint wants. There is no documented way to get it otherwise.

	if len(sessionCookie) == 0 {
		return "", &CredentialError{Kind: FetchFailed, Err: errors.New("must provide a session cookie")}
	}

	resp, err := c.get(ctx, c.board.LandingURL, sessionCookie)
	if err != nil {
		return "", &CredentialError{Kind: FetchFailed, Err: errors.Wrapf(err, "failed to GET %q", c.board.LandingURL)}
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &CredentialError{Kind: FetchFailed, Err: errors.Errorf("GET %q unexpected status: %s", c.board.LandingURL, resp.Status)}
	}

	return parseCredential(io.LimitReader(resp.Body, maxPageSize))
}

// parseCredential looks for the BBS iframe in the HTML document read from r,
// and returns the value of the first query parameter of its src URL.
//
// XXX(bbsmech): "first query parameter, whatever its name" matches the one URL
// shape we've seen from the board. If the board ever reorders its parameters
// this will happily return the wrong value.
func parseCredential(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &CredentialError{Kind: FetchFailed, Err: errors.Wrap(err, "failed to parse landing page")}
	}

	sel := doc.Find(credentialSelector).First()
	if sel.Length() == 0 {
		return "", &CredentialError{Kind: ElementNotFound, Err: errors.Errorf("no element matching %q", credentialSelector)}
	}

	src, ok := sel.Attr("src")
	if !ok || len(strings.TrimSpace(src)) == 0 {
		return "", &CredentialError{Kind: MalformedURL, Err: errors.Errorf("%q has no src attribute", credentialSelector)}
	}

	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", &CredentialError{Kind: MalformedURL, Err: errors.Wrapf(err, "failed to parse src %q", src)}
	}

	if !u.IsAbs() || len(u.Host) == 0 {
		return "", &CredentialError{Kind: MalformedURL, Err: errors.Errorf("src %q is not an absolute URL", src)}
	}

	val, err := firstQueryValue(u.RawQuery)
	if err != nil {
		return "", &CredentialError{Kind: MalformedURL, Err: errors.Wrapf(err, "failed to decode query of src %q", src)}
	}

	if len(val) == 0 {
		return "", &CredentialError{Kind: MissingCredential, Err: errors.Errorf("src %q has no credential in its query", src)}
	}

	return val, nil
}

// firstQueryValue returns the unescaped value of the first key/value pair in
// the raw query string, in the order it appears. url.ParseQuery can't be used
// here because it returns a map, and the order matters to us.
func firstQueryValue(rawQuery string) (string, error) {
	for len(rawQuery) > 0 {
		var pair string

		pair, rawQuery, _ = strings.Cut(rawQuery, "&")
		if len(pair) == 0 {
			continue
		}

		_, val, _ := strings.Cut(pair, "=")

		return url.QueryUnescape(val)
	}

	return "", nil
}
