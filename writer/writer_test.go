package writer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/reader"
)

// testPDF assembles classic cross-reference fixtures with correct offsets.
type testPDF struct {
	buf     bytes.Buffer
	offsets map[int]int
	maxNum  int
}

func newTestPDF() *testPDF {
	b := &testPDF{offsets: make(map[int]int)}
	b.buf.WriteString("%PDF-1.7\n")
	return b
}

func (b *testPDF) add(num int, body string) {
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	if num > b.maxNum {
		b.maxNum = num
	}
}

func (b *testPDF) build(t *testing.T, trailerExtra string) *reader.Document {
	t.Helper()

	xrefOff := b.buf.Len()
	size := b.maxNum + 1
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", size)
	b.buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[i])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root 1 0 R %s>>\nstartxref\n%d\n%%%%EOF\n",
		size, trailerExtra, xrefOff)

	doc, err := reader.FromBytes(b.buf.Bytes())
	require.NoError(t, err)
	return doc
}

const testContent = "BT /F1 24 Tf 72 720 Td (Hello) Tj ET"

// buildSource produces a two-page document with an uncompressed content
// stream on page one and an info dictionary.
func buildSource(t *testing.T) *reader.Document {
	return buildSourceWithContent(t, testContent)
}

func buildSourceWithContent(t *testing.T, content string) *reader.Document {
	t.Helper()

	b := newTestPDF()
	b.add(1, "<< /Type /Catalog /Pages 2 0 R >>")
	b.add(2, "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>")
	b.add(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 5 0 R >>")
	b.add(4, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 100 200] /Rotate 90 >>")
	b.add(5, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	b.add(6, "<< /Title (Round Trip) >>")
	return b.build(t, "/Info 6 0 R ")
}

// roundTrip serializes doc and parses the result back.
func roundTrip(t *testing.T, w *Writer, doc *compose.Document) *reader.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, w.Write(doc, &buf))

	out, err := reader.FromBytes(buf.Bytes())
	require.NoError(t, err, "serialized output must parse back")
	return out
}

func TestWriteRoundTrip(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(), doc)

	assert.Equal(t, 2, out.PageCount())
	assert.Equal(t, "1.7", out.Version().String())

	page1, err := out.Page(1)
	require.NoError(t, err)
	box, err := page1.MediaBox()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 612, 792}, box)

	page2, err := out.Page(2)
	require.NoError(t, err)
	assert.Equal(t, 90, page2.Rotate())
}

func TestWritePreservesContentStream(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(), doc)

	page, err := out.Page(1)
	require.NoError(t, err)
	contents, err := page.Contents()
	require.NoError(t, err)
	require.Len(t, contents, 1)

	stream := contents[0].(*core.Stream)
	data, err := stream.Decode()
	require.NoError(t, err)
	assert.Equal(t, testContent, string(data))
}

func TestWriteCarriesInfo(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(), doc)

	info, err := out.Info()
	require.NoError(t, err)
	assert.Equal(t, "Round Trip", info.Title)
}

func TestWriteTrailerID(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(), doc)

	id, ok := out.Trailer().GetArray("ID")
	require.True(t, ok, "trailer must carry an /ID pair")
	require.Len(t, id, 2)
	first, ok := id[0].(core.String)
	require.True(t, ok)
	assert.Len(t, []byte(first), 16)
}

func TestWriteRotationSurvives(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Rotate(src, "1", 180)
	require.NoError(t, err)

	out := roundTrip(t, New(), doc)

	page, err := out.Page(1)
	require.NoError(t, err)
	assert.Equal(t, 180, page.Rotate())
}

func TestRecompactCompressesStreams(t *testing.T) {
	content := strings.Repeat("0 0 m 100 100 l S\n", 64)
	src := buildSourceWithContent(t, content)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(WithRecompact()), doc)

	page, err := out.Page(1)
	require.NoError(t, err)
	contents, err := page.Contents()
	require.NoError(t, err)
	require.Len(t, contents, 1)

	stream := contents[0].(*core.Stream)
	assert.True(t, stream.IsEncoded(), "recompaction must compress unfiltered streams")
	assert.Less(t, len(stream.Data), len(content))

	filter, ok := stream.Dict.GetName("Filter")
	require.True(t, ok)
	assert.Equal(t, "FlateDecode", string(filter))

	data, err := stream.Decode()
	require.NoError(t, err)
	assert.Equal(t, content, string(data), "compression must not change the payload")
}

func TestRecompactKeepsIncompressibleStreams(t *testing.T) {
	// Short content grows under the zlib framing; it must stay raw
	src := buildSourceWithContent(t, testContent)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	out := roundTrip(t, New(WithRecompact()), doc)

	page, err := out.Page(1)
	require.NoError(t, err)
	contents, err := page.Contents()
	require.NoError(t, err)
	require.Len(t, contents, 1)

	stream := contents[0].(*core.Stream)
	assert.False(t, stream.IsEncoded(), "compression that grows the stream must be skipped")
	assert.Equal(t, testContent, string(stream.Data))
}

func TestRecompactRenumbersContiguously(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New(WithRecompact()).Write(doc, &buf))

	out, err := reader.FromBytes(buf.Bytes())
	require.NoError(t, err)

	size, ok := out.Trailer().GetInt("Size")
	require.True(t, ok)
	for i := 1; i < int(size); i++ {
		_, err := out.GetObject(i)
		assert.NoError(t, err, "object %d must exist after renumbering", i)
	}
}

func TestWriteFile(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, New().WriteFile(doc, path))

	out, err := reader.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, out.PageCount())
}

func TestPackageLevelWrite(t *testing.T) {
	src := buildSource(t)
	doc, err := compose.Clone(src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(doc, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-1.7\n")))
}

func TestFileID(t *testing.T) {
	id := fileID()
	require.Len(t, id, 2)

	first := id[0].(core.String)
	second := id[1].(core.String)
	assert.Len(t, []byte(first), 16)
	assert.Len(t, []byte(second), 16)
	assert.NotEqual(t, first, second)
}

func TestReachableFrom(t *testing.T) {
	// 1 -> 3 -> 1 (cycle); 2 is unreferenced
	objects := []core.Object{
		core.Dict{"Next": core.IndirectRef{Number: 3}},
		core.Dict{"Orphan": core.Bool(true)},
		core.Dict{"Back": core.IndirectRef{Number: 1}},
	}

	reachable, err := reachableFrom(objects, core.IndirectRef{Number: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, reachable)
}

func TestReachableFromErrors(t *testing.T) {
	t.Run("reference beyond table", func(t *testing.T) {
		objects := []core.Object{
			core.Dict{"Next": core.IndirectRef{Number: 9}},
		}
		_, err := reachableFrom(objects, core.IndirectRef{Number: 1})
		var serErr *SerializationError
		require.ErrorAs(t, err, &serErr)
		assert.Equal(t, 9, serErr.Object)
	})

	t.Run("unfilled slot", func(t *testing.T) {
		objects := []core.Object{
			core.Dict{"Next": core.IndirectRef{Number: 2}},
			nil,
		}
		_, err := reachableFrom(objects, core.IndirectRef{Number: 1})
		var serErr *SerializationError
		require.ErrorAs(t, err, &serErr)
		assert.Equal(t, 2, serErr.Object)
	})
}
