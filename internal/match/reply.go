// Copyright (c) 2026 higuchi-learn / freelen
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package match

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var ErrMalformedReply = errors.New("match: malformed reply body")

// ReplyKind tags a decoded server reply.
type ReplyKind int

const (
	ReplyAccepted ReplyKind = iota
	ReplyRejected
	ReplyTransition
	ReplyStatus
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyAccepted:
		return "accepted"
	case ReplyRejected:
		return "rejected"
	case ReplyTransition:
		return "transition"
	case ReplyStatus:
		return "status"
	}
	return "unknown"
}

// Reason explains a rejection.
type Reason string

const (
	ReasonPlayerNotReady   Reason = "player not ready"
	ReasonOpponentNotReady Reason = "opponent not ready"
)

// Server sentinel texts.
const (
	errPlayerNotReady   = "player not ready"
	errOpponentNotReady = "opponent not ready"
	errOppoenent        = "oppoenent not ready" // misspelling seen from the deployed server
	errChangeFighting   = "change fighting"
)

// Reply is a server response decoded once at the boundary.
type Reply struct {
	Kind   ReplyKind
	Reason Reason // ReplyRejected
	To     State  // ReplyTransition
	Status string // ReplyStatus: raw body text
	Detail string // unrecognised error text, kept for logging
}

func Accepted() Reply { return Reply{Kind: ReplyAccepted} }

func Rejected(r Reason) Reply { return Reply{Kind: ReplyRejected, Reason: r} }

func TransitionTo(s State) Reply { return Reply{Kind: ReplyTransition, To: s} }

func StatusReply(text string) Reply { return Reply{Kind: ReplyStatus, Status: text} }

type errorBody struct {
	Error *string `json:"error"`
}

// DecodeReply parses a POST reply. It accepts a JSON object with an "error"
// field, or a JSON string carrying the same object in dict notation
// ("{'error': 'player not ready'}"), which is what the server emits today.
func DecodeReply(body []byte) (Reply, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Reply{}, ErrMalformedReply
	}

	var wrapped string
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return decodeDictText(wrapped)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return Reply{}, ErrMalformedReply
	}
	raw, ok := obj["error"]
	if !ok {
		return Accepted(), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return Reply{}, ErrMalformedReply
	}
	return classifyError(text), nil
}

func decodeDictText(s string) (Reply, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Accepted(), nil
	}
	if !strings.HasPrefix(s, "{") {
		r := Accepted()
		r.Detail = s
		return r, nil
	}
	var eb errorBody
	if err := json.Unmarshal([]byte(dictToJSON(s)), &eb); err != nil {
		return Reply{}, ErrMalformedReply
	}
	if eb.Error == nil {
		return Accepted(), nil
	}
	return classifyError(*eb.Error), nil
}

// dictToJSON rewrites a dict literal in repr form as JSON. Single quoted
// strings become double quoted. repr switches to double quotes when the text
// holds an apostrophe, and those strings pass through unchanged.
func dictToJSON(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i : j+1])
			i = j
		case '\'':
			b.WriteByte('"')
			for i++; i < len(s) && s[i] != '\''; i++ {
				switch {
				case s[i] == '\\' && i+1 < len(s):
					i++
					if s[i] != '\'' {
						b.WriteByte('\\')
					}
					b.WriteByte(s[i])
				case s[i] == '"':
					b.WriteString(`\"`)
				default:
					b.WriteByte(s[i])
				}
			}
			b.WriteByte('"')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func classifyError(text string) Reply {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case errPlayerNotReady:
		return Rejected(ReasonPlayerNotReady)
	case errOpponentNotReady, errOppoenent:
		return Rejected(ReasonOpponentNotReady)
	case errChangeFighting:
		return TransitionTo(Fighting)
	}
	r := Accepted()
	r.Detail = text
	return r
}
