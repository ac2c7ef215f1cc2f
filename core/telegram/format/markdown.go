// Package format prepares text for Telegram parse modes.
package format

import "strings"

var (
	mdV2     = strings.NewReplacer(escapePairs("_*[]()~`>#+-=|{}.!\\")...)
	mdV2Code = strings.NewReplacer(escapePairs("`\\")...)
)

func escapePairs(chars string) []string {
	pairs := make([]string, 0, 2*len(chars))
	for _, c := range chars {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return pairs
}

// MarkdownV2 escapes every character MarkdownV2 reserves, so text renders
// literally.
func MarkdownV2(text string) string {
	return mdV2.Replace(text)
}

// MarkdownV2Code escapes text placed inside a code or pre entity, where only
// backquotes and backslashes are special.
func MarkdownV2Code(text string) string {
	return mdV2Code.Replace(text)
}

// Deref returns *p, or def when p is nil.
func Deref[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
