package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveAndRemove(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, err := st.Save(strings.NewReader("hello world"), "report.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_report.txt"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	st.Remove(path)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// removing again must be silent
	st.Remove(path, "")
}

func TestStoreSaveUniqueNames(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first, err := st.Save(strings.NewReader("a"), "doc.pdf")
	require.NoError(t, err)
	second, err := st.Save(strings.NewReader("b"), "doc.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStoreSanitizesNames(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	path, err := st.Save(strings.NewReader("x"), "../../etc/pass wd?.pdf")
	require.NoError(t, err)
	assert.Equal(t, st.Dir(), filepath.Dir(path))
	assert.NotContains(t, filepath.Base(path), "/")
	assert.NotContains(t, filepath.Base(path), "?")
	assert.NotContains(t, filepath.Base(path), " ")
}

func TestOutputPathKeepsExtensionAndLang(t *testing.T) {
	st, err := NewStore(t.TempDir())
	require.NoError(t, err)

	in, err := st.Save(strings.NewReader("x"), "contract.pdf")
	require.NoError(t, err)

	out := st.OutputPath(in, "DE")
	assert.Equal(t, st.Dir(), filepath.Dir(out))
	assert.True(t, strings.HasSuffix(out, "_contract_de.pdf"), "got %s", out)
	assert.NotEqual(t, in, out)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatPDF, DetectFormat("application/pdf", "x.bin"))
	assert.Equal(t, FormatText, DetectFormat("text/plain", "x.bin"))
	assert.Equal(t, FormatPDF, DetectFormat("", "scan.PDF"))
	assert.Equal(t, FormatText, DetectFormat("", "notes.txt"))
	assert.Equal(t, FormatUnknown, DetectFormat("image/png", "photo.png"))
}

func TestTextRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	require.NoError(t, WriteTranslated("Guten Tag", path, FormatText))

	text, err := ExtractText(path, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Guten Tag", text)
}

func TestWritePDFProducesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.pdf")

	require.NoError(t, WriteTranslated("Hello\n\nSecond paragraph", path, FormatPDF))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := ExtractText("whatever.png", FormatUnknown)
	assert.Error(t, err)

	err = WriteTranslated("x", "whatever.png", FormatUnknown)
	assert.Error(t, err)
}
