package qbot

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ParseEvent normalizes a decoded OneBot message event. It never fails:
// missing fields become zero values and an unknown message_type yields
// Scope Other.
func ParseEvent(raw map[string]any) *Event {
	ev := &Event{
		SelfID: idString(raw["self_id"]),
		UserID: idString(raw["user_id"]),
		MsgID:  idString(raw["message_id"]),
	}

	switch raw["message_type"] {
	case "private":
		ev.Scope = Private
	case "group":
		ev.Scope = Group
		ev.GroupID = idString(raw["group_id"])
	default:
		ev.Scope = Other
	}

	sender, _ := raw["sender"].(map[string]any)
	card, _ := sender["card"].(string)
	nickname, _ := sender["nickname"].(string)
	role, _ := sender["role"].(string)

	switch {
	case card != "":
		ev.Name = card
	case nickname != "":
		ev.Name = nickname
	case ev.UserID != "":
		ev.Name = ev.UserID
	default:
		ev.Name = "unknown"
	}

	// role must match exactly, "admin " is not an admin
	ev.IsAdmin = ev.Scope == Private || role == "owner" || role == "admin"

	// array-format messages carry the CQ string in raw_message
	msg, ok := raw["message"].(string)
	if !ok {
		msg, _ = raw["raw_message"].(string)
	}
	ev.Text = normalizeText(msg, ev.SelfID)
	return ev
}

// normalizeText decodes escaped brackets and strips the bot's own mention.
// Decoding comes first so an escaped mention cannot survive.
func normalizeText(msg, selfID string) string {
	msg = DecodeSpecialChars(msg)
	if selfID != "" {
		msg = strings.ReplaceAll(msg, CQAt(selfID), "")
	}
	return strings.TrimSpace(msg)
}

// qq 号可能是 string 或 number
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	default:
		return ""
	}
}
