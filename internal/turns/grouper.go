package turns

import (
	"strings"
	"time"
)

// Message is a single chat message in chronological channel order.
// ReplyTo points to the message this one explicitly replies to; it is nil
// both for plain messages and for replies whose target has been deleted.
type Message struct {
	Author    string
	Text      string
	Timestamp time.Time
	ReplyTo   *Message
}

// Turn is one logical reply unit: one or more consecutive messages from the
// target author, paired with the text of the message the turn responds to.
type Turn struct {
	Texts         []string
	PrecedingText string
}

func (t *Turn) Combined() string {
	return strings.Join(t.Texts, "\n")
}

func (t *Turn) MessageCount() int {
	return len(t.Texts)
}

type groupState int

const (
	stateEmpty groupState = iota
	stateAccumulating
)

// Grouper partitions a chronological message stream into turns of the target
// author. It is a pure state machine: feed messages oldest first, collect a
// finalized turn whenever one is returned, and call Flush at end of input.
type Grouper struct {
	target string
	gap    time.Duration

	state     groupState
	group     []*Message
	preceding *Message // context for the group being accumulated
	prev      *Message // last message seen, any author
}

func NewGrouper(target string, gap time.Duration) *Grouper {
	return &Grouper{target: target, gap: gap}
}

// Feed advances the grouper by one message and returns the turn it
// finalized, if any. A message from another author closes the open group;
// a target-author message whose distance to the group's last message
// exceeds the gap threshold closes it and opens a new one. Empty-text
// messages from the target author neither start nor extend a group, but
// still count as the "immediately preceding" message for context.
func (g *Grouper) Feed(m *Message) *Turn {
	var finalized *Turn
	switch {
	case m.Author != g.target:
		finalized = g.finalize()
	case m.Text == "":
		// skipped
	case g.state == stateAccumulating && m.Timestamp.Sub(g.last().Timestamp) > g.gap:
		// gap splitting is checked before appending
		finalized = g.finalize()
		g.start(m)
	case g.state == stateEmpty:
		g.start(m)
	default:
		g.group = append(g.group, m)
	}
	g.prev = m
	return finalized
}

// Flush finalizes the group still open at end of input, if any.
func (g *Grouper) Flush() *Turn {
	return g.finalize()
}

func (g *Grouper) last() *Message {
	return g.group[len(g.group)-1]
}

func (g *Grouper) start(m *Message) {
	g.state = stateAccumulating
	g.group = []*Message{m}
	g.preceding = g.prev
}

func (g *Grouper) finalize() *Turn {
	if g.state == stateEmpty {
		g.preceding = nil
		return nil
	}
	preceding := g.preceding
	if ref := g.group[0].ReplyTo; ref != nil {
		// an explicit reply target overrides conversational adjacency
		preceding = ref
	}
	texts := make([]string, len(g.group))
	for i, m := range g.group {
		texts[i] = m.Text
	}
	turn := &Turn{Texts: texts}
	if preceding != nil {
		turn.PrecedingText = preceding.Text
	}
	g.state = stateEmpty
	g.group = nil
	g.preceding = nil
	return turn
}

// GroupTurns runs the grouper over a complete message list. Messages must
// already be in chronological order, oldest first; history endpoints
// typically return newest first and have to be reversed by the caller.
func GroupTurns(messages []*Message, target string, gap time.Duration) []*Turn {
	grouper := NewGrouper(target, gap)
	var result []*Turn
	for _, m := range messages {
		if turn := grouper.Feed(m); turn != nil {
			result = append(result, turn)
		}
	}
	if turn := grouper.Flush(); turn != nil {
		result = append(result, turn)
	}
	return result
}
