// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package discordbot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toof-jp/bbsmech"
)

const testCookie = "user_session=user_session_42_abc" /* #nosec */

type submission struct {
	cookie, from, message string
	hasDeadline           bool
}

type fakePoster struct {
	mu    sync.Mutex
	calls []submission

	res bbsmech.Result
	err error
}

func (f *fakePoster) Submit(ctx context.Context, sessionCookie, from, message string) (bbsmech.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := ctx.Deadline()
	f.calls = append(f.calls, submission{cookie: sessionCookie, from: from, message: message, hasDeadline: ok})

	return f.res, f.err
}

func (f *fakePoster) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]submission(nil), f.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(t *testing.T, p Poster, cooldown time.Duration) *Handler {
	t.Helper()

	h, err := NewHandler(p, Config{
		SessionCookie: testCookie,
		DefaultFrom:   "ななしのよっしん",
		Cooldown:      cooldown,
		Timeout:       time.Second,
		Logger:        discardLogger(),
	})
	require.NoError(t, err)

	return h
}

func TestNewHandler(t *testing.T) {
	p := &fakePoster{}

	tests := []struct {
		name string
		p    Poster
		cfg  Config
		err  string
	}{
		{name: "no_poster", cfg: Config{SessionCookie: testCookie}, err: "must provide a poster"},
		{name: "no_cookie", p: p, err: "must provide a session cookie"},
		{name: "negative_cooldown", p: p, cfg: Config{SessionCookie: testCookie, Cooldown: -time.Second}, err: "cooldown must not be negative"},
		{name: "ok", p: p, cfg: Config{SessionCookie: testCookie}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(tt.p, tt.cfg)
			if len(tt.err) > 0 {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h.log)
			assert.Nil(t, h.limiter)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	in := Inbound{MessageID: "10", AuthorID: "20", AuthorName: "toof", Content: "<@1> hello"}

	tests := []struct {
		name   string
		res    bbsmech.Result
		err    error
		reply  string
		result string
	}{
		{
			name:   "success",
			res:    bbsmech.Result{Outcome: bbsmech.OutcomeSuccess},
			reply:  "投稿を受け付けました！",
			result: "success",
		},
		{
			name:   "rate_limited",
			res:    bbsmech.Result{Outcome: bbsmech.OutcomeRateLimited},
			reply:  "投稿間隔が短すぎです。300秒待ってください。",
			result: "rate_limited",
		},
		{
			name:   "too_long",
			res:    bbsmech.Result{Outcome: bbsmech.OutcomeTooLong},
			reply:  "投稿内容が長すぎです。1024文字に収めてください。",
			result: "too_long",
		},
		{
			name:   "line_too_long",
			res:    bbsmech.Result{Outcome: bbsmech.OutcomeLineTooLong},
			reply:  "投稿内容に長すぎる行があります。1行は192文字に収めてください。",
			result: "line_too_long",
		},
		{
			name:   "unknown_failure",
			res:    bbsmech.Result{Outcome: bbsmech.OutcomeUnknownFailure, Snippet: "メンテナンス中"},
			reply:  "投稿結果を確認できませんでした。",
			result: "unknown_failure",
		},
		{
			name:   "transport_error",
			err:    &bbsmech.TransportError{Op: "derive credential", Err: errors.New("boom")},
			reply:  bbsmech.FailureMessage,
			result: resultError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoster{res: tt.res, err: tt.err}
			h := newTestHandler(t, p, 0)

			before := testutil.ToFloat64(postsTotal.WithLabelValues(tt.result))

			assert.Equal(t, tt.reply, h.Handle(context.Background(), in))
			assert.Equal(t, before+1, testutil.ToFloat64(postsTotal.WithLabelValues(tt.result)))

			calls := p.submissions()
			require.Len(t, calls, 1)
			assert.Equal(t, submission{
				cookie:      testCookie,
				from:        "toof",
				message:     "hello\n\nmessage_id: 10\nuser_id: 20",
				hasDeadline: true,
			}, calls[0])
		})
	}
}

func TestHandler_Handle_defaultFrom(t *testing.T) {
	p := &fakePoster{res: bbsmech.Result{Outcome: bbsmech.OutcomeSuccess}}
	h := newTestHandler(t, p, 0)

	h.Handle(context.Background(), Inbound{MessageID: "1", AuthorID: "2", Content: "hi"})

	calls := p.submissions()
	require.Len(t, calls, 1)
	assert.Equal(t, "ななしのよっしん", calls[0].from)
}

func TestHandler_Handle_cooldown(t *testing.T) {
	tests := []struct {
		name    string
		first   bbsmech.Outcome
		blocked bool
	}{
		{name: "after_success", first: bbsmech.OutcomeSuccess, blocked: true},
		{name: "after_rate_limited", first: bbsmech.OutcomeRateLimited, blocked: true},
		{name: "after_too_long", first: bbsmech.OutcomeTooLong},
		{name: "after_unknown_failure", first: bbsmech.OutcomeUnknownFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoster{res: bbsmech.Result{Outcome: tt.first}}
			h := newTestHandler(t, p, time.Hour)

			in := Inbound{MessageID: "1", AuthorID: "2", AuthorName: "toof", Content: "hi"}

			h.Handle(context.Background(), in)
			require.Len(t, p.submissions(), 1)

			before := testutil.ToFloat64(postsTotal.WithLabelValues(resultCooldown))
			reply := h.Handle(context.Background(), in)

			if tt.blocked {
				assert.Equal(t, "投稿間隔が短すぎです。3600秒待ってください。", reply)
				assert.Len(t, p.submissions(), 1, "board should not be contacted during cooldown")
				assert.Equal(t, before+1, testutil.ToFloat64(postsTotal.WithLabelValues(resultCooldown)))
				return
			}

			assert.Len(t, p.submissions(), 2)
		})
	}
}

func TestHandler_Handle_unknownDiffersFromError(t *testing.T) {
	in := Inbound{MessageID: "1", AuthorID: "2", AuthorName: "toof", Content: "hi"}

	unknown := newTestHandler(t, &fakePoster{res: bbsmech.Result{Outcome: bbsmech.OutcomeUnknownFailure}}, 0).
		Handle(context.Background(), in)

	failed := newTestHandler(t, &fakePoster{err: &bbsmech.TransportError{Op: "post", Err: errors.New("boom")}}, 0).
		Handle(context.Background(), in)

	assert.Equal(t, bbsmech.FailureMessage, failed)
	assert.NotEqual(t, failed, unknown)
}

func Test_cooldownMessage(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: bbsmech.MinPostInterval, want: "投稿間隔が短すぎです。300秒待ってください。"},
		{d: 90 * time.Second, want: "投稿間隔が短すぎです。90秒待ってください。"},
		{d: 1500 * time.Millisecond, want: "投稿間隔が短すぎです。2秒待ってください。"},
	}

	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, cooldownMessage(tt.d))
		})
	}
}

func TestHandler_Handle_concurrent(t *testing.T) {
	p := &fakePoster{res: bbsmech.Result{Outcome: bbsmech.OutcomeSuccess}}
	h := newTestHandler(t, p, time.Hour)

	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			h.Handle(context.Background(), Inbound{MessageID: "1", AuthorID: "2", Content: "hi"})
		}()
	}

	wg.Wait()

	assert.Len(t, p.submissions(), 1, "only one post should get through the cooldown")
}

type sent struct {
	channelID, content string
}

func TestHandler_onMessage(t *testing.T) {
	const botID = "1"

	tests := []struct {
		name   string
		m      *discordgo.Message
		posted bool
	}{
		{
			name: "no_author",
			m:    &discordgo.Message{Content: "<@1> hi", Mentions: []*discordgo.User{{ID: botID}}},
		},
		{
			name: "bot_author",
			m: &discordgo.Message{
				Author:   &discordgo.User{ID: "5", Bot: true},
				Content:  "<@1> hi",
				Mentions: []*discordgo.User{{ID: botID}},
			},
		},
		{
			name: "not_mentioned",
			m: &discordgo.Message{
				Author:   &discordgo.User{ID: "5", Username: "someone"},
				Content:  "<@7> hi",
				Mentions: []*discordgo.User{{ID: "7"}},
			},
		},
		{
			name: "mentioned",
			m: &discordgo.Message{
				ID:        "100",
				ChannelID: "200",
				Author:    &discordgo.User{ID: "5", Username: "someone", GlobalName: "誰か"},
				Content:   "<@1> <@7> hi",
				Mentions:  []*discordgo.User{{ID: "7"}, {ID: botID}},
			},
			posted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePoster{res: bbsmech.Result{Outcome: bbsmech.OutcomeSuccess}}
			h := newTestHandler(t, p, 0)

			var replies []sent
			h.onMessage(botID, tt.m, func(channelID, content string) error {
				replies = append(replies, sent{channelID: channelID, content: content})
				return nil
			})

			if !tt.posted {
				assert.Empty(t, p.submissions())
				assert.Empty(t, replies)
				return
			}

			calls := p.submissions()
			require.Len(t, calls, 1)
			assert.Equal(t, "誰か", calls[0].from)
			assert.Equal(t, "hi\n\nmessage_id: 100\nuser_id: 5", calls[0].message)

			assert.Equal(t, []sent{{channelID: "200", content: "投稿を受け付けました！"}}, replies)
		})
	}
}

func TestHandler_onMessage_sendError(t *testing.T) {
	p := &fakePoster{err: errors.New("boom")}
	h := newTestHandler(t, p, 0)

	m := &discordgo.Message{
		ID:        "100",
		ChannelID: "200",
		Author:    &discordgo.User{ID: "5", Username: "someone"},
		Content:   "<@1> hi",
		Mentions:  []*discordgo.User{{ID: "1"}},
	}

	var got string
	assert.NotPanics(t, func() {
		h.onMessage("1", m, func(_, content string) error {
			got = content
			return errors.New("discord is down")
		})
	})

	assert.Equal(t, bbsmech.FailureMessage, got)
}
