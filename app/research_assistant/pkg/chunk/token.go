package chunk

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
)

// CountTokens 统计 text 中的 token 数。
// token 即 UAX #29 词边界切分出的非空白片段 (单词、数字、标点各算一个)，结果确定且与语言无关。
func CountTokens(text string) int {
	n := 0
	iter := words.FromString(text)
	for iter.Next() {
		if !isSpace(iter.Value()) {
			n++
		}
	}
	return n
}

// Truncate 保留 text 的前 maxTokens 个 token，返回截断后的文本以及是否发生截断
func Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return "", strings.TrimSpace(text) != ""
	}
	n := 0
	iter := words.FromString(text)
	for iter.Next() {
		if isSpace(iter.Value()) {
			continue
		}
		n++
		if n == maxTokens {
			end := iter.End()
			truncated := strings.TrimSpace(text[end:]) != ""
			return text[:end], truncated
		}
	}
	return text, false
}

func isSpace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
