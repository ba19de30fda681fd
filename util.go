// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package bbsmech

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:128.0) Gecko/20100101 Firefox/128.0"

func setUA(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
}

// setCookie sets the raw Cookie header. The value is sent as-is; the board's
// cookie parser expects exactly the shape we give it, so this must not go
// through (*http.Request).AddCookie.
func setCookie(req *http.Request, cookie string) {
	if len(cookie) > 0 {
		req.Header.Set("Cookie", cookie)
	}
}

func getReq(ctx context.Context, url, cookie string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	setUA(req)
	setCookie(req, cookie)

	return req, nil
}

func postFormReq(ctx context.Context, url, cookie string, val url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(val.Encode()))
	if err != nil {
		return nil, err
	}

	setUA(req)
	setCookie(req, cookie)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req, nil
}
