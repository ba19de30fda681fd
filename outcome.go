// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package bbsmech

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MinPostInterval is the minimum time the board wants between two posts from
// the same user. Posting sooner gets OutcomeRateLimited. This package doesn't
// enforce it.
const MinPostInterval = 300 * time.Second

// Outcome is the result of a post, as reported by the board.
type Outcome uint8

const (
	// OutcomeUnknownFailure means the response matched none of the known
	// markers. The board's response format may have changed.
	OutcomeUnknownFailure Outcome = iota

	// OutcomeRateLimited means the last post was less than MinPostInterval
	// ago.
	OutcomeRateLimited

	// OutcomeTooLong means the post body was over the board's length limit.
	OutcomeTooLong

	// OutcomeLineTooLong means one of the lines in the post body was over the
	// board's per-line length limit.
	OutcomeLineTooLong

	// OutcomeSuccess means the board accepted the post.
	OutcomeSuccess
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknownFailure:
		return "unknown_failure"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTooLong:
		return "too_long"
	case OutcomeLineTooLong:
		return "line_too_long"
	case OutcomeSuccess:
		return "success"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// messages are the user-facing strings for each Outcome, in the language of
// the board.
var messages = map[Outcome]string{
	OutcomeRateLimited:    "投稿間隔が短すぎです。300秒待ってください。",
	OutcomeTooLong:        "投稿内容が長すぎです。1024文字に収めてください。",
	OutcomeLineTooLong:    "投稿内容に長すぎる行があります。1行は192文字に収めてください。",
	OutcomeSuccess:        "投稿を受け付けました！",
	OutcomeUnknownFailure: UnrecognizedMessage,
}

// FailureMessage is what a user should be shown when a post couldn't be made
// at all: the credential couldn't be derived, or the board couldn't be
// reached.
const FailureMessage = "投稿に失敗しました。"

// UnrecognizedMessage is what a user should be shown when the board answered
// the post, but not in a way we recognize. The post may or may not have gone
// through.
const UnrecognizedMessage = "投稿結果を確認できませんでした。"

// Result is what Submit returns once the board has answered.
type Result struct {
	Outcome Outcome

	// Snippet is a short excerpt of the visible text of the response. It's
	// only set for OutcomeUnknownFailure, to help figure out what the board
	// said.
	Snippet string
}

// Message returns a human-readable description of the result, suitable for
// showing to the user who asked for the post.
func (r Result) Message() string {
	if m, ok := messages[r.Outcome]; ok {
		return m
	}

	return UnrecognizedMessage
}

// Classifier turns the body of the board's response to a post into a Result.
type Classifier interface {
	Classify(body []byte) Result
}

// Marker pairs a phrase the board writes into its response page with the
// Outcome that phrase means.
type Marker struct {
	Phrase  string
	Outcome Outcome
}

// MarkerClassifier is a Classifier that does plain substring matching on the
// response body. Markers are checked in order, and the first one found wins.
type MarkerClassifier []Marker

// DefaultClassifier has the phrases the board is known to use. The order
// matters if the board ever echoes more than one of them.
var DefaultClassifier = MarkerClassifier{
	{Phrase: "投稿間隔が短すぎです", Outcome: OutcomeRateLimited},
	{Phrase: "投稿内容が長すぎです", Outcome: OutcomeTooLong},
	{Phrase: "投稿内容に長すぎる行があります", Outcome: OutcomeLineTooLong},
	{Phrase: "投稿を受け付けました", Outcome: OutcomeSuccess},
}

// Classify satisfies the Classifier interface.
func (mc MarkerClassifier) Classify(body []byte) Result {
	for _, m := range mc {
		if len(m.Phrase) > 0 && bytes.Contains(body, []byte(m.Phrase)) {
			return Result{Outcome: m.Outcome}
		}
	}

	return Result{Outcome: OutcomeUnknownFailure, Snippet: snippet(body, maxSnippetLen)}
}

// maxSnippetLen is the maximum number of runes in a Result's Snippet.
const maxSnippetLen = 200

// snippet returns up to n runes of the visible text in the HTML document p,
// with runs of whitespace collapsed. The contents of <script> and <style>
// elements are skipped.
func snippet(p []byte, n int) string {
	var sb strings.Builder

	t := html.NewTokenizer(bytes.NewReader(p))

	// depth of <script>/<style> elements we're currently inside
	var skip int

	for sb.Len() < n*utf8.UTFMax {
		tt := t.Next()

		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken:
			if a := t.Token().DataAtom; a == atom.Script || a == atom.Style {
				skip++
			}

		case html.EndTagToken:
			if a := t.Token().DataAtom; (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}

			for _, f := range strings.Fields(string(t.Text())) {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(f)
			}
		}
	}

	return truncateRunes(sb.String(), n)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	var i, count int
	for i = range s {
		if count == n {
			break
		}
		count++
	}

	return s[:i]
}
