// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

// Package discordbot relays Discord messages that mention the bot to a
// community BBS, and replies with how the post went.
package discordbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/toof-jp/bbsmech"
)

// Poster is the functionality we need from a *bbsmech.Client.
type Poster interface {
	Submit(ctx context.Context, sessionCookie, from, message string) (bbsmech.Result, error)
}

// Config configures a Handler.
type Config struct {
	// SessionCookie is the niconico session cookie every post is made with.
	SessionCookie string

	// DefaultFrom is posted as the name when the author has none.
	DefaultFrom string

	// Cooldown is the minimum time between posts. Mentions that arrive sooner
	// are answered without contacting the board. Zero disables this.
	Cooldown time.Duration

	// Timeout bounds each post, credential derivation included.
	Timeout time.Duration

	Logger *slog.Logger
}

// Handler turns mentions of the bot into posts on the board.
type Handler struct {
	poster      Poster
	cookie      string
	defaultFrom string
	timeout     time.Duration
	log         *slog.Logger

	// mu is held for a whole post, so the cooldown is checked and updated
	// atomically with respect to other posts.
	mu       sync.Mutex
	limiter  *rate.Limiter
	cooldown time.Duration
}

// NewHandler returns a new *Handler posting with p.
func NewHandler(p Poster, cfg Config) (*Handler, error) {
	if p == nil {
		return nil, errors.New("must provide a poster")
	}

	if len(cfg.SessionCookie) == 0 {
		return nil, errors.New("must provide a session cookie")
	}

	if cfg.Cooldown < 0 {
		return nil, errors.Errorf("cooldown must not be negative, got %s", cfg.Cooldown)
	}

	h := &Handler{
		poster:      p,
		cookie:      cfg.SessionCookie,
		defaultFrom: cfg.DefaultFrom,
		timeout:     cfg.Timeout,
		log:         cfg.Logger,
	}

	if h.log == nil {
		h.log = slog.Default()
	}

	if cfg.Cooldown > 0 {
		h.limiter = rate.NewLimiter(rate.Every(cfg.Cooldown), 1)
		h.cooldown = cfg.Cooldown
	}

	return h, nil
}

// Handle posts in to the board, and returns the text to reply with. It never
// fails: anything that goes wrong is described in the reply.
func (h *Handler) Handle(ctx context.Context, in Inbound) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := h.log.With("message_id", in.MessageID, "user_id", in.AuthorID)

	if h.limiter != nil && h.limiter.Tokens() < 1 {
		postsTotal.WithLabelValues(resultCooldown).Inc()
		log.Info("post refused, still cooling down")
		return cooldownMessage(h.cooldown)
	}

	from := in.AuthorName
	if len(from) == 0 {
		from = h.defaultFrom
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := h.poster.Submit(ctx, h.cookie, from, in.Body())
	postDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		postsTotal.WithLabelValues(resultError).Inc()
		log.Error("failed to post", "error", err)
		return bbsmech.FailureMessage
	}

	postsTotal.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case bbsmech.OutcomeSuccess, bbsmech.OutcomeRateLimited:
		// either way, the board's posting interval has started
		if h.limiter != nil {
			h.limiter.Allow()
		}
		log.Info("board answered", "outcome", res.Outcome)

	case bbsmech.OutcomeUnknownFailure:
		log.Warn("board response not recognized", "snippet", res.Snippet)

	default:
		log.Info("board answered", "outcome", res.Outcome)
	}

	return res.Message()
}

// cooldownMessage is the reply to a mention arriving within d of the last post.
// It reads like the board's own rate limit message, with d in whole seconds.
func cooldownMessage(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("投稿間隔が短すぎです。%d秒待ってください。", secs)
}

// OnMessageCreate is a discordgo event handler. Register it with
// (*discordgo.Session).AddHandler.
func (h *Handler) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if s.State == nil || s.State.User == nil || m.Message == nil {
		return
	}

	h.onMessage(s.State.User.ID, m.Message, func(channelID, content string) error {
		_, err := s.ChannelMessageSend(channelID, content)
		return err
	})
}

// OnReady is a discordgo event handler logging the bot's identity once it has
// connected.
func (h *Handler) OnReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User != nil {
		h.log.Info("connected to Discord", "user", r.User.Username)
	}
}

func (h *Handler) onMessage(botID string, m *discordgo.Message, send func(channelID, content string) error) {
	if m.Author == nil || m.Author.Bot || !mentions(m, botID) {
		return
	}

	in := Inbound{
		MessageID:  m.ID,
		AuthorID:   m.Author.ID,
		AuthorName: displayName(m.Author),
		Content:    m.Content,
	}

	reply := h.Handle(context.Background(), in)

	if err := send(m.ChannelID, reply); err != nil {
		h.log.Error("failed to send reply", "channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}
