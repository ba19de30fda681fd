// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

// Package bbsmech is a package for mechanizing posts to a niconico community
// bulletin board (BBS). It imitates what a logged-in browser does when a user
// writes to the board: load the board's landing page with the user's session
// cookie, pull the short-lived posting credential (the "hash key") out of the
// embedded BBS iframe, and submit the post form with that credential attached
// as a cookie.
//
// The board doesn't answer with a status code or a structured payload. It
// renders an HTML page with the result written in it, so the outcome of a post
// is inferred by looking for known phrases in the response body. See the
// Classifier type if you need to change those phrases.
//
// The behaviors relied on by this package are undocumented, and fall outside
// of any compatibility guarantees provided by the board's operator. It's
// reasonable to assume they may break unexpectedly in the future.
//
// The board enforces a minimum interval between posts (see MinPostInterval).
// This package does not track or enforce that interval; that's the caller's
// job.
package bbsmech
