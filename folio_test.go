package folio

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/compose"
	"github.com/tsawler/folio/reader"
)

// buildPDF produces a document of pageCount pages where page i has MediaBox
// width i*100, with correct cross-reference offsets.
func buildPDF(t *testing.T, pageCount int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, pageCount+3)

	buf.WriteString("%PDF-1.7\n")

	add := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	add(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 1; i <= pageCount; i++ {
		kids += fmt.Sprintf("%d 0 R ", 2+i)
	}
	add(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pageCount))

	for i := 1; i <= pageCount; i++ {
		add(2+i, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d 200] >>", i*100))
	}

	size := pageCount + 3
	xrefOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i < size; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xrefOff)

	return buf.Bytes()
}

// parseWidths parses serialized output and returns each page's MediaBox width.
func parseWidths(t *testing.T, data []byte) []int {
	t.Helper()

	doc, err := reader.FromBytes(data)
	require.NoError(t, err, "pipeline output must parse back")

	widths := make([]int, doc.PageCount())
	for i := range widths {
		page, err := doc.Page(i + 1)
		require.NoError(t, err)
		box, err := page.MediaBox()
		require.NoError(t, err)
		widths[i] = int(box[2])
	}
	return widths
}

func TestPipelinePageCount(t *testing.T) {
	count, err := FromBytes(buildPDF(t, 4)).PageCount()
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestPipelinePagesSelection(t *testing.T) {
	data, err := FromBytes(buildPDF(t, 5)).Pages("2-4").Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int{200, 300, 400}, parseWidths(t, data))
}

func TestPipelineRotate(t *testing.T) {
	data, err := FromBytes(buildPDF(t, 2)).Rotate(90).Bytes()
	require.NoError(t, err)

	doc, err := reader.FromBytes(data)
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		page, err := doc.Page(i)
		require.NoError(t, err)
		assert.Equal(t, 90, page.Rotate(), "page %d", i)
	}
}

func TestPipelineRotateRejectsNonQuarterTurn(t *testing.T) {
	_, err := FromBytes(buildPDF(t, 2)).Rotate(45).Bytes()
	assert.ErrorIs(t, err, compose.ErrInvalidRotation)
}

func TestPipelineReorder(t *testing.T) {
	data, err := FromBytes(buildPDF(t, 3)).Reorder(3, 1, 2).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int{300, 100, 200}, parseWidths(t, data))
}

func TestPipelineReorderAfterSelection(t *testing.T) {
	// Permutation indices are relative to the selected pages 2, 3, 4
	data, err := FromBytes(buildPDF(t, 5)).Pages("2-4").Reorder(3, 1, 2).Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int{400, 200, 300}, parseWidths(t, data))
}

func TestPipelineReorderInvalid(t *testing.T) {
	_, err := FromBytes(buildPDF(t, 3)).Reorder(1, 1, 2).Bytes()
	assert.ErrorIs(t, err, compose.ErrInvalidPermutation)

	_, err = FromBytes(buildPDF(t, 3)).Reorder(1, 2).Bytes()
	assert.ErrorIs(t, err, compose.ErrInvalidPermutation)
}

func TestPipelineChainsFork(t *testing.T) {
	base := FromBytes(buildPDF(t, 3))

	first, err := base.Pages("1").Bytes()
	require.NoError(t, err)
	second, err := base.Pages("2").Bytes()
	require.NoError(t, err)

	assert.Equal(t, []int{100}, parseWidths(t, first))
	assert.Equal(t, []int{200}, parseWidths(t, second), "forked chains must not share state")
}

func TestPipelineSplit(t *testing.T) {
	parts, err := FromBytes(buildPDF(t, 5)).Split(2)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, []int{100, 200}, parseWidths(t, parts[0]))
	assert.Equal(t, []int{300, 400}, parseWidths(t, parts[1]))
	assert.Equal(t, []int{500}, parseWidths(t, parts[2]))
}

func TestPipelineSplitAfterSelection(t *testing.T) {
	parts, err := FromBytes(buildPDF(t, 5)).Pages("2-5").Split(2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, []int{200, 300}, parseWidths(t, parts[0]))
	assert.Equal(t, []int{400, 500}, parseWidths(t, parts[1]))
}

func TestPipelineRecompact(t *testing.T) {
	data, err := FromBytes(buildPDF(t, 3)).Pages("1,3").Recompact().Bytes()
	require.NoError(t, err)
	assert.Equal(t, []int{100, 300}, parseWidths(t, data))
}

func TestPipelineBadExpression(t *testing.T) {
	_, err := FromBytes(buildPDF(t, 3)).Pages("nonsense").Bytes()
	assert.Error(t, err)
}

func TestPipelineNoSource(t *testing.T) {
	_, err := (&Pipeline{}).PageCount()
	assert.Error(t, err)
}

func TestOpenAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(in, buildPDF(t, 3), 0644))

	require.NoError(t, Open(in).Pages("2").WriteFile(out))

	doc, err := reader.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.PageCount())
}

func TestFromDocument(t *testing.T) {
	doc, err := reader.FromBytes(buildPDF(t, 2))
	require.NoError(t, err)

	count, err := FromDocument(doc).PageCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMergeFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	b := filepath.Join(dir, "b.pdf")
	out := filepath.Join(dir, "merged.pdf")
	require.NoError(t, os.WriteFile(a, buildPDF(t, 2), 0644))
	require.NoError(t, os.WriteFile(b, buildPDF(t, 1), 0644))

	require.NoError(t, MergeFiles(out, a, b))

	doc, err := reader.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())
}

func TestMergeRequiresTwoFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(a, buildPDF(t, 1), 0644))

	var buf bytes.Buffer
	assert.ErrorIs(t, Merge(&buf, a), compose.ErrInsufficientInput)
}

func TestMust(t *testing.T) {
	assert.Equal(t, 42, Must(42, nil))

	assert.Panics(t, func() {
		Must(0, fmt.Errorf("boom"))
	})
}
