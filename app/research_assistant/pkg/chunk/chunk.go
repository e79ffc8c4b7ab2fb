// Package chunk 把任意长度的文本切成不超过 token 预算的有序分块
package chunk

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/sentences"
)

// DefaultMaxTokens 默认单块 token 预算
const DefaultMaxTokens = 8000

// Joiner 分块之间 (以及同一分块内段落之间) 的连接符
const Joiner = "\n\n"

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n\s*`)

// Chunk 一个分块
type Chunk struct {
	Text       string
	TokenCount int
}

// Chunker 带固定预算的切分器，零值使用 DefaultMaxTokens
type Chunker struct {
	MaxTokens int
}

// New 创建切分器，maxTokens <= 0 时使用默认值
func New(maxTokens int) Chunker {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return Chunker{MaxTokens: maxTokens}
}

// Split 按 Chunker 的预算切分
func (c Chunker) Split(text string) []Chunk {
	max := c.MaxTokens
	if max <= 0 {
		max = DefaultMaxTokens
	}
	return Split(text, max)
}

// Split 切分 text，保证:
//   - 用 Joiner 连接所有分块后按空白切词，与原文按空白切词的结果一致，顺序不变；
//   - 每块 token 数 <= maxTokens，唯一例外是单个超长句子，它独占一块；
//   - 同一段落内的句子保留原文中的分隔，之间没有空白的句子视为一句；
//   - 原文本身不超预算时只返回一块，内容与原文完全相同；空白文本返回空切片。
//
// 先按段落 (空行) 切分并累积；单个段落超预算时按句子 (UAX #29) 切分并同样累积。
func Split(text string, maxTokens int) []Chunk {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if total := CountTokens(text); total <= maxTokens {
		return []Chunk{{Text: text, TokenCount: total}}
	}

	b := &builder{max: maxTokens}
	for _, para := range Paragraphs(text) {
		n := CountTokens(para)
		if n <= maxTokens {
			b.add(para, n, Joiner)
			continue
		}
		spans := sentenceSpans(para)
		for i, sp := range spans {
			sep := Joiner
			if i > 0 {
				sep = para[spans[i-1].end:sp.start]
			}
			sent := para[sp.start:sp.end]
			b.add(sent, CountTokens(sent), sep)
		}
	}
	b.flush()
	return b.chunks
}

// Paragraphs 按空行切分段落，去掉首尾空白并丢弃空段落
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Sentences 按 UAX #29 句子边界切分，去掉首尾空白并丢弃空句。
// 边界两侧没有空白时 (如 "1609).Later") 不切开。
func Sentences(text string) []string {
	spans := sentenceSpans(text)
	out := make([]string, 0, len(spans))
	for _, sp := range spans {
		out = append(out, text[sp.start:sp.end])
	}
	return out
}

// span 句子在原文中的字节区间 [start, end)
type span struct {
	start, end int
}

func sentenceSpans(text string) []span {
	var out []span
	iter := sentences.FromString(text)
	for iter.Next() {
		v := iter.Value()
		body := strings.TrimLeftFunc(v, unicode.IsSpace)
		start := iter.Start() + len(v) - len(body)
		body = strings.TrimRightFunc(body, unicode.IsSpace)
		if body == "" {
			continue
		}
		sp := span{start: start, end: start + len(body)}
		if n := len(out); n > 0 && out[n-1].end == sp.start {
			out[n-1].end = sp.end
			continue
		}
		out = append(out, sp)
	}
	return out
}

// builder 累积当前分块
type builder struct {
	max    int
	parts  []string
	tokens int
	chunks []Chunk
}

// add 追加一个片段；放不下时先结束当前分块。sep 是片段与前一片段之间的连接符。
func (b *builder) add(piece string, n int, sep string) {
	if len(b.parts) > 0 && b.tokens+n > b.max {
		b.flush()
	}
	if len(b.parts) > 0 {
		b.parts = append(b.parts, sep)
	}
	b.parts = append(b.parts, piece)
	b.tokens += n
}

func (b *builder) flush() {
	if len(b.parts) == 0 {
		return
	}
	text := strings.Join(b.parts, "")
	b.chunks = append(b.chunks, Chunk{Text: text, TokenCount: CountTokens(text)})
	b.parts = b.parts[:0]
	b.tokens = 0
}

// Texts 返回分块文本
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
