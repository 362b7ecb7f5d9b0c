package qbot

import "strings"

func CQAt(userID string) string {
	return "[CQ:at,qq=" + userID + "]"
}

var specialCharsDecoder = strings.NewReplacer(
	"&#91;", "[",
	"&#93;", "]",
	"&amp;", "&",
)

var specialCharsEncoder = strings.NewReplacer(
	"&", "&amp;",
	"[", "&#91;",
	"]", "&#93;",
)

// DecodeSpecialChars reverses the gateway's escaping of plain message text.
func DecodeSpecialChars(raw string) string {
	return specialCharsDecoder.Replace(raw)
}

func EncodeSpecialChars(raw string) string {
	return specialCharsEncoder.Replace(raw)
}
