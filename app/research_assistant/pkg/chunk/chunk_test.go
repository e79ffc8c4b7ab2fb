package chunk

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sentence 返回一个 9 token 的句子
func sentence(i int) string {
	return fmt.Sprintf("Sentence number %d has several words in it.", i)
}

func paragraph(from, n int) string {
	parts := make([]string, 0, n)
	for i := from; i < from+n; i++ {
		parts = append(parts, sentence(i))
	}
	return strings.Join(parts, " ")
}

func assertPreserved(t *testing.T, text string, chunks []Chunk) {
	t.Helper()
	joined := strings.Join(Texts(chunks), Joiner)
	assert.Equal(t, strings.Fields(text), strings.Fields(joined))
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	assert.Equal(t, 0, CountTokens("  \n\t "))
	assert.Equal(t, 4, CountTokens("Hello, world."))
	assert.Equal(t, 9, CountTokens(sentence(1)))
}

func TestSplit_Empty(t *testing.T) {
	assert.Nil(t, Split("", 10))
	assert.Nil(t, Split(" \n\n  ", 10))
}

func TestSplit_UnderBudgetReturnsInput(t *testing.T) {
	text := "  First paragraph.\n\n\nSecond   paragraph with odd   spacing.  "
	chunks := Split(text, 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, CountTokens(text), chunks[0].TokenCount)
}

func TestSplit_Paragraphs(t *testing.T) {
	paras := []string{paragraph(0, 2), paragraph(2, 2), paragraph(4, 2), paragraph(6, 2)}
	text := strings.Join(paras, "\n\n")

	// 每段 18 token，预算 40 时两段一块
	chunks := Split(text, 40)
	require.Len(t, chunks, 2)
	assert.Equal(t, paras[0]+Joiner+paras[1], chunks[0].Text)
	assert.Equal(t, paras[2]+Joiner+paras[3], chunks[1].Text)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 40)
		assert.Equal(t, CountTokens(c.Text), c.TokenCount)
	}
	assertPreserved(t, text, chunks)
}

func TestSplit_OversizedParagraphFallsBackToSentences(t *testing.T) {
	text := paragraph(0, 10)
	chunks := Split(text, 20)

	// 90 token，每块最多两句
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 20)
	}
	assert.Equal(t, sentence(0)+" "+sentence(1), chunks[0].Text)
	assertPreserved(t, text, chunks)
}

func TestSplit_MixedParagraphs(t *testing.T) {
	text := strings.Join([]string{
		"Short intro.",
		paragraph(0, 6),
		"Middle note.",
		paragraph(10, 3),
	}, "\n\n")

	chunks := Split(text, 25)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.TokenCount, 25)
	}
	assertPreserved(t, text, chunks)
}

func TestSplit_SingleOversizedSentenceIsOwnChunk(t *testing.T) {
	long := "This " + strings.Repeat("very ", 30) + "long sentence never ends."
	text := sentence(1) + " " + long + " " + sentence(2)

	chunks := Split(text, 12)
	require.Len(t, chunks, 3)
	assert.Equal(t, sentence(1), chunks[0].Text)
	assert.Equal(t, long, chunks[1].Text)
	assert.Greater(t, chunks[1].TokenCount, 12)
	assert.Equal(t, sentence(2), chunks[2].Text)
	assertPreserved(t, text, chunks)
}

func TestSplit_Idempotent(t *testing.T) {
	text := strings.Join([]string{paragraph(0, 5), paragraph(5, 1), paragraph(6, 4)}, "\n\n")
	for _, c := range Split(text, 30) {
		again := Split(c.Text, 30)
		require.Len(t, again, 1)
		assert.Equal(t, c.Text, again[0].Text)
	}
}

func TestSplit_NonPositiveBudgetUsesDefault(t *testing.T) {
	text := paragraph(0, 3)
	chunks := Split(text, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text)

	assert.Equal(t, DefaultMaxTokens, New(-1).MaxTokens)
	assert.Len(t, Chunker{}.Split(text), 1)
}

func TestTruncate(t *testing.T) {
	text := "One two three four five."

	out, truncated := Truncate(text, 3)
	assert.True(t, truncated)
	assert.Equal(t, "One two three", out)

	out, truncated = Truncate(text, 6)
	assert.False(t, truncated)
	assert.Equal(t, text, out)

	out, truncated = Truncate(text, 100)
	assert.False(t, truncated)
	assert.Equal(t, text, out)

	out, truncated = Truncate(text, 0)
	assert.True(t, truncated)
	assert.Empty(t, out)
}

func TestParagraphsAndSentences(t *testing.T) {
	assert.Equal(t, []string{"a b", "c"}, Paragraphs("a b\r\n \r\n\n c \n"))
	assert.Equal(t, []string{"First one.", "Second one?", "Third!"}, Sentences("First one. Second one? Third!"))
	assert.Equal(t, []string{"Built one (c.", "1609).Later ones.", "Done."}, Sentences("Built one (c. 1609).Later ones.  Done."))
}

func TestSplit_KeepsSeparatorsBetweenSentences(t *testing.T) {
	tests := []string{
		strings.Repeat("Galileo built one (c. 1609).Later models improved. ", 3),
		strings.Repeat(`It raised $3.5M."Amazing," said the founder.  `, 4),
		strings.Repeat("First.\tSecond!Third?  Fourth. ", 5),
	}
	for _, text := range tests {
		chunks := Split(text, 10)
		require.Greater(t, len(chunks), 1)
		assertPreserved(t, text, chunks)
		for _, c := range chunks {
			assert.Contains(t, text, c.Text)
		}
	}
}

var splitVocab = []string{
	"Galileo", "built", "the", "telescope", "in", "(c.", "1609).Later", `$3.5M."Amazing`,
	"e.g.", "U.S.", "Dr.", "Smith.", "Why?", "Yes!", "Next.Then", "x", "1.5", "3.",
	"“quoted.”", "中文句子。第二句。", "(see", "below).", "end.", "...", "—", "Über.", "ok",
}

var splitSeps = []string{" ", " ", " ", " ", "  ", "\n", "\n\n", "\t", ". ", "", " \n \n"}

func randomText(r *rand.Rand) string {
	var b strings.Builder
	n := r.Intn(120)
	for i := 0; i < n; i++ {
		b.WriteString(splitVocab[r.Intn(len(splitVocab))])
		b.WriteString(splitSeps[r.Intn(len(splitSeps))])
	}
	return b.String()
}

// checkSplit 校验内容保持、token 计数与预算上限
func checkSplit(t *testing.T, text string, max int) {
	t.Helper()
	chunks := Split(text, max)
	if strings.TrimSpace(text) == "" {
		assert.Empty(t, chunks)
		return
	}
	require.NotEmpty(t, chunks)
	assertPreserved(t, text, chunks)

	single := map[string]bool{}
	for _, p := range Paragraphs(text) {
		for _, s := range Sentences(p) {
			single[s] = true
		}
	}
	for _, c := range chunks {
		assert.Equal(t, CountTokens(c.Text), c.TokenCount, "%q", c.Text)
		if c.TokenCount > max && len(chunks) > 1 {
			assert.True(t, single[c.Text], "chunk over budget %d is not a single sentence: %q", max, c.Text)
		}
	}
}

func TestSplit_Randomized(t *testing.T) {
	r := rand.New(rand.NewSource(1608))
	for i := 0; i < 2000; i++ {
		text := randomText(r)
		max := 1 + r.Intn(40)
		checkSplit(t, text, max)
		if t.Failed() {
			t.Fatalf("failed on case %d: max=%d text=%q", i, max, text)
		}
	}
}

func FuzzSplit(f *testing.F) {
	f.Add("Galileo built one (c. 1609).Later models improved. Galileo built one (c. 1609).Later models improved.", uint8(10))
	f.Add(`It raised $3.5M."Amazing," said the founder. It raised $3.5M."Amazing," said the founder.`, uint8(6))
	f.Add("One.Two.Three.\n\nFour? Five!Six\n\n\nSeven.", uint8(3))
	f.Add("中文句子。第二句。第三句。", uint8(2))
	f.Add(strings.Repeat("very ", 40)+"long.", uint8(5))
	f.Fuzz(func(t *testing.T, text string, budget uint8) {
		if !utf8.ValidString(text) {
			t.Skip()
		}
		checkSplit(t, text, int(budget%64)+1)
	})
}
