package turns

import (
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 12, 14, 0, 0, 0, time.UTC)

func msg(author, text string, offset time.Duration) *Message {
	return &Message{Author: author, Text: text, Timestamp: t0.Add(offset)}
}

func reply(author, text string, offset time.Duration, to *Message) *Message {
	m := msg(author, text, offset)
	m.ReplyTo = to
	return m
}

func TestGroupTurns(t *testing.T) {
	gap := 30 * time.Minute
	tests := []struct {
		name     string
		messages []*Message
		wanted   []*Turn
	}{
		{
			"empty",
			nil,
			nil,
		},
		{
			"no target messages",
			[]*Message{
				msg("alice", "hi", 0),
				msg("carol", "hey", time.Minute),
			},
			nil,
		},
		{
			"consecutive messages merge",
			[]*Message{
				msg("alice", "hi", 0),
				msg("bob", "yo", time.Minute),
				msg("bob", "sup", time.Minute+time.Second),
				msg("alice", "bye", 2*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"yo", "sup"}, PrecedingText: "hi"},
			},
		},
		{
			"first message has no preceding",
			[]*Message{
				msg("bob", "first", 0),
				msg("alice", "hello", time.Minute),
			},
			[]*Turn{
				{Texts: []string{"first"}, PrecedingText: ""},
			},
		},
		{
			"other author splits groups",
			[]*Message{
				msg("bob", "one", 0),
				msg("alice", "hm", time.Minute),
				msg("bob", "two", 2*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"one"}, PrecedingText: ""},
				{Texts: []string{"two"}, PrecedingText: "hm"},
			},
		},
		{
			"gap over threshold splits",
			[]*Message{
				msg("bob", "before", 0),
				msg("bob", "after", 31*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"before"}, PrecedingText: ""},
				{Texts: []string{"after"}, PrecedingText: "before"},
			},
		},
		{
			"gap exactly at threshold merges",
			[]*Message{
				msg("bob", "before", 0),
				msg("bob", "after", 30*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"before", "after"}, PrecedingText: ""},
			},
		},
		{
			"gap measured against last group message",
			[]*Message{
				msg("bob", "a", 0),
				msg("bob", "b", 20*time.Minute),
				msg("bob", "c", 40*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"a", "b", "c"}, PrecedingText: ""},
			},
		},
		{
			"empty text skipped entirely",
			[]*Message{
				msg("alice", "hi", 0),
				msg("bob", "", time.Minute),
			},
			nil,
		},
		{
			"empty text does not break a group",
			[]*Message{
				msg("bob", "one", 0),
				msg("bob", "", time.Minute),
				msg("bob", "two", 2*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"one", "two"}, PrecedingText: ""},
			},
		},
		{
			"empty text counts as preceding message",
			[]*Message{
				msg("alice", "", 0),
				msg("bob", "hello", time.Minute),
			},
			[]*Turn{
				{Texts: []string{"hello"}, PrecedingText: ""},
			},
		},
		{
			"reply overrides preceding",
			[]*Message{
				msg("alice", "original question", 0),
				msg("carol", "noise", 10*time.Minute),
				reply("bob", "answer", 11*time.Minute, msg("alice", "original question", 0)),
			},
			[]*Turn{
				{Texts: []string{"answer"}, PrecedingText: "original question"},
			},
		},
		{
			"deleted reply target falls back to preceding",
			[]*Message{
				msg("alice", "noise", 0),
				reply("bob", "answer", time.Minute, nil),
			},
			[]*Turn{
				{Texts: []string{"answer"}, PrecedingText: "noise"},
			},
		},
		{
			"reply on non-first group message is ignored",
			[]*Message{
				msg("alice", "context", 0),
				msg("bob", "one", time.Minute),
				reply("bob", "two", 2*time.Minute, msg("carol", "elsewhere", 0)),
			},
			[]*Turn{
				{Texts: []string{"one", "two"}, PrecedingText: "context"},
			},
		},
		{
			"target message precedes own next turn after gap",
			[]*Message{
				msg("alice", "hi", 0),
				msg("bob", "early", time.Minute),
				msg("bob", "late", 45*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"early"}, PrecedingText: "hi"},
				{Texts: []string{"late"}, PrecedingText: "early"},
			},
		},
		{
			"multiple turns keep channel order",
			[]*Message{
				msg("bob", "a", 0),
				msg("alice", "x", time.Minute),
				msg("bob", "b", 2*time.Minute),
				msg("bob", "c", 3*time.Minute),
				msg("alice", "y", 4*time.Minute),
				msg("bob", "d", 5*time.Minute),
			},
			[]*Turn{
				{Texts: []string{"a"}, PrecedingText: ""},
				{Texts: []string{"b", "c"}, PrecedingText: "x"},
				{Texts: []string{"d"}, PrecedingText: "y"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := GroupTurns(test.messages, "bob", gap)
			if !reflect.DeepEqual(result, test.wanted) {
				t.Errorf("GroupTurns() = %+v, wanted %+v", result, test.wanted)
			}
		})
	}
}

func TestGroupTurnsIdempotent(t *testing.T) {
	messages := []*Message{
		msg("alice", "hi", 0),
		msg("bob", "yo", time.Minute),
		msg("bob", "sup", 2*time.Minute),
		msg("alice", "bye", 3*time.Minute),
		msg("bob", "later", 4*time.Minute),
	}
	first := GroupTurns(messages, "bob", 30*time.Minute)
	second := GroupTurns(messages, "bob", 30*time.Minute)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ: %+v vs %+v", first, second)
	}
}

func TestGrouperIncremental(t *testing.T) {
	grouper := NewGrouper("bob", 30*time.Minute)
	if turn := grouper.Feed(msg("alice", "hi", 0)); turn != nil {
		t.Errorf("unexpected turn: %+v", turn)
	}
	if turn := grouper.Feed(msg("bob", "yo", time.Minute)); turn != nil {
		t.Errorf("unexpected turn: %+v", turn)
	}
	turn := grouper.Feed(msg("alice", "bye", 2*time.Minute))
	if turn == nil || turn.Combined() != "yo" || turn.PrecedingText != "hi" {
		t.Errorf("Feed() finalized %+v", turn)
	}
	if turn := grouper.Flush(); turn != nil {
		t.Errorf("Flush() after finalize = %+v, wanted nil", turn)
	}
}

func TestTurnCombined(t *testing.T) {
	turn := &Turn{Texts: []string{"a", "b", "c"}}
	if combined := turn.Combined(); combined != "a\nb\nc" {
		t.Errorf("Combined() = %q", combined)
	}
	if count := turn.MessageCount(); count != 3 {
		t.Errorf("MessageCount() = %v", count)
	}
}
