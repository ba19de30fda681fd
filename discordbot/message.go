// Copyright (c) 2026 toof-jp
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package discordbot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// mentionPattern matches a Discord user mention, like <@123456789>.
var mentionPattern = regexp.MustCompile(`<@\d+>`)

// StripMentions removes user mentions from s. Whitespace around a mention is
// left alone.
func StripMentions(s string) string {
	return mentionPattern.ReplaceAllString(s, "")
}

// Inbound is a chat message addressed to the bot.
type Inbound struct {
	MessageID  string
	AuthorID   string
	AuthorName string
	Content    string
}

// Body returns the text to post for the message: the content without
// mentions, followed by the message and author IDs so a post can be traced
// back to Discord.
func (in Inbound) Body() string {
	return fmt.Sprintf("%s\n\nmessage_id: %s\nuser_id: %s",
		strings.TrimSpace(StripMentions(in.Content)), in.MessageID, in.AuthorID)
}

// displayName returns the name Discord shows for u.
func displayName(u *discordgo.User) string {
	if u == nil {
		return ""
	}

	if len(u.GlobalName) > 0 {
		return u.GlobalName
	}

	return u.Username
}

// mentions reports whether userID is among the users mentioned in m.
func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}

	return false
}
