package qbot

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	m := map[string]any{}
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestParseEventGroup(t *testing.T) {
	ev := ParseEvent(decode(t, `{
		"self_id": 42, "message_type": "group", "user_id": 1, "group_id": 9, "message_id": 77,
		"sender": {"card": "Alias", "nickname": "Nick", "role": "owner"},
		"message": "[CQ:at,qq=42]  #myserver player-list  "
	}`))

	assert.Equal(t, Group, ev.Scope)
	assert.Equal(t, "42", ev.SelfID)
	assert.Equal(t, "1", ev.UserID)
	assert.Equal(t, "9", ev.GroupID)
	assert.Equal(t, "77", ev.MsgID)
	assert.Equal(t, "Alias", ev.Name)
	assert.True(t, ev.IsAdmin)
	assert.Equal(t, "#myserver player-list", ev.Text)
}

func TestParseEventPrivateIsAdmin(t *testing.T) {
	ev := ParseEvent(map[string]any{
		"message_type": "private",
		"user_id":      float64(1006554341),
		"group_id":     float64(5),
		"sender":       map[string]any{"nickname": "Nick", "role": "member"},
		"message":      "hi",
	})
	assert.Equal(t, Private, ev.Scope)
	assert.Equal(t, "1006554341", ev.UserID)
	assert.Empty(t, ev.GroupID)
	assert.Equal(t, "Nick", ev.Name)
	assert.True(t, ev.IsAdmin)
}

func TestParseEventRoles(t *testing.T) {
	tests := []struct {
		role  string
		admin bool
	}{
		{"owner", true},
		{"admin", true},
		{"admin ", false},
		{" owner", false},
		{"Admin", false},
		{"member", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			ev := ParseEvent(map[string]any{
				"message_type": "group",
				"user_id":      "1",
				"group_id":     "2",
				"sender":       map[string]any{"role": tt.role},
			})
			assert.Equal(t, tt.admin, ev.IsAdmin)
		})
	}
}

func TestParseEventNameFallback(t *testing.T) {
	ev := ParseEvent(map[string]any{"message_type": "group", "user_id": "123"})
	assert.Equal(t, "123", ev.Name)

	ev = ParseEvent(map[string]any{"message_type": "group", "sender": map[string]any{"card": ""}})
	assert.Equal(t, "unknown", ev.Name)
}

func TestParseEventOther(t *testing.T) {
	ev := ParseEvent(map[string]any{"message_type": "guild", "user_id": 1, "message": "#a start"})
	assert.Equal(t, Other, ev.Scope)

	ev = ParseEvent(map[string]any{})
	assert.Equal(t, Other, ev.Scope)
	assert.Equal(t, "", ev.Text)
}

func TestParseEventDecodesBrackets(t *testing.T) {
	ev := ParseEvent(map[string]any{"message_type": "private", "user_id": 1, "message": "&#91;a&#93;"})
	assert.Equal(t, "[a]", ev.Text)

	ev = ParseEvent(map[string]any{"message_type": "private", "user_id": 1, "message": EncodeSpecialChars("[a] & b")})
	assert.Equal(t, "[a] & b", ev.Text)
}

func TestParseEventStripsEscapedMention(t *testing.T) {
	ev := ParseEvent(map[string]any{
		"self_id":      "42",
		"message_type": "private",
		"user_id":      1,
		"message":      "&#91;CQ:at,qq=42&#93; hello [CQ:at,qq=42]",
	})
	assert.Equal(t, "hello", ev.Text)
	assert.NotContains(t, ev.Text, CQAt("42"))
}

func TestParseEventNonStringMessage(t *testing.T) {
	ev := ParseEvent(map[string]any{
		"message_type": "private",
		"user_id":      1,
		"message":      []any{map[string]any{"type": "text"}},
	})
	assert.Equal(t, "", ev.Text)
}

func TestParseEventArrayMessageUsesRawMessage(t *testing.T) {
	raw := decode(t, `{"self_id":42,"message_type":"group","user_id":1,"group_id":9,
		"message":[{"type":"at","data":{"qq":"42"}},{"type":"text","data":{"text":" #cave start"}}],
		"raw_message":"[CQ:at,qq=42] #cave start"}`)
	ev := ParseEvent(raw)
	assert.Equal(t, "#cave start", ev.Text)

	// a string message wins over raw_message
	ev = ParseEvent(map[string]any{
		"message_type": "private",
		"user_id":      1,
		"message":      "hello",
		"raw_message":  "ignored",
	})
	assert.Equal(t, "hello", ev.Text)
}

func TestParseEventIsPure(t *testing.T) {
	raw := decode(t, `{"self_id":42,"message_type":"group","user_id":1,"group_id":9,
		"sender":{"nickname":"n","role":"admin"},"message":"[CQ:at,qq=42] &#91;x&#93;"}`)
	first := ParseEvent(raw)
	second := ParseEvent(raw)
	assert.Equal(t, *first, *second)
}
