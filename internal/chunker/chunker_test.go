package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRejectsBadParameters(t *testing.T) {
	_, err := Split("some text", 0, 0)
	assert.Error(t, err)

	_, err = Split("some text", 10, 10)
	assert.Error(t, err)

	_, err = Split("some text", 10, 15)
	assert.Error(t, err)

	_, err = Split("some text", 10, -1)
	assert.Error(t, err)
}

func TestSplitEmptyText(t *testing.T) {
	passages, err := Split("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, passages)

	passages, err = Split("   \n\t  ", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestSplitShortTextSinglePassage(t *testing.T) {
	passages, err := Split("short document", 100, 10)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "short document", passages[0])
}

func TestSplitExactOverlapWithoutWhitespace(t *testing.T) {
	// No whitespace forces hard cuts, so the overlap is exact.
	text := strings.Repeat("a", 10) + strings.Repeat("b", 10) + strings.Repeat("c", 5)
	passages, err := Split(text, 10, 2)
	require.NoError(t, err)
	require.True(t, len(passages) >= 2)

	for i := 1; i < len(passages); i++ {
		prev := passages[i-1]
		tail := prev[len(prev)-2:]
		assert.True(t, strings.HasPrefix(passages[i], tail),
			"passage %d should start with the 2-char tail of passage %d", i, i-1)
	}
}

func TestSplitSizeAndOrderProperties(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("the quick brown fox jumps over the lazy dog ", 60))
	size, overlap := 100, 20

	passages, err := Split(text, size, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, passages)

	for i, p := range passages {
		assert.LessOrEqual(t, len(p), size, "passage %d exceeds chunk size", i)
		assert.NotEmpty(t, p)
	}

	// Each passage starts exactly overlap characters before the previous
	// one ends, so its prefix must equal the previous passage's suffix.
	// That also proves ordering and gap-free coverage.
	for i := 1; i < len(passages); i++ {
		prev := passages[i-1]
		require.GreaterOrEqual(t, len(prev), overlap)
		assert.Equal(t, prev[len(prev)-overlap:], passages[i][:overlap],
			"passage %d does not overlap passage %d", i, i-1)
	}

	// Dropping the overlap prefix of every passage after the first must
	// reconstruct the source text.
	var sb strings.Builder
	sb.WriteString(passages[0])
	for i := 1; i < len(passages); i++ {
		sb.WriteString(passages[i][overlap:])
	}
	assert.Equal(t, text, sb.String())
}
