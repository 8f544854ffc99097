package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExtractor_ResolvesPDF(t *testing.T) {
	for _, kind := range []string{"pdf", "PDF", " pdf ", ""} {
		ex, err := NewExtractor(kind)
		require.NoError(t, err, "kind %q", kind)
		require.NotNil(t, ex)
	}
}

func TestNewExtractor_UnknownKind(t *testing.T) {
	_, err := NewExtractor("docx")
	assert.ErrorIs(t, err, ErrNoExtractorAvailable)
}

func TestExtract_CorruptedInput(t *testing.T) {
	ex, err := NewExtractor("pdf")
	require.NoError(t, err)

	for _, data := range [][]byte{
		nil,
		[]byte("this is not a pdf"),
		[]byte("%PDF-1.4 truncated garbage"),
	} {
		_, err := ex.Extract(data)
		assert.ErrorIs(t, err, ErrUnreadableDocument, "input %q must fail as unreadable, not panic", string(data))
	}
}
