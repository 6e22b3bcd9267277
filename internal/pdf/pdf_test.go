package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrbench/internal/proc"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(t *testing.T, pages ...string) string {
	t.Helper()

	var objects []string
	kids := make([]string, len(pages))
	// 1: catalog, 2: pages, 3: font, then page/content pairs
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

type fakeRunner struct {
	calls [][]string
	// write controls whether the fake pdftoppm produces the page image.
	write bool
	err   error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return f.err
	}
	if f.write {
		prefix := args[len(args)-1]
		return os.WriteFile(prefix+".png", []byte("png"), 0o644)
	}
	return nil
}

func staticCount(n int) PageCounter {
	return func(string) (int, error) { return n, nil }
}

func TestRasterizeWritesOneImagePerPage(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "pages")
	runner := &fakeRunner{write: true}

	r := NewRasterizer("", 0, runner)
	r.PageCount = staticCount(3)

	paths, err := r.Rasterize(context.Background(), "in.pdf", outDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(outDir, "page_1.png"),
		filepath.Join(outDir, "page_2.png"),
		filepath.Join(outDir, "page_3.png"),
	}, paths)

	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{
		"pdftoppm", "-png", "-r", "300", "-f", "2", "-l", "2", "-singlefile",
		"in.pdf", filepath.Join(outDir, "page_2"),
	}, runner.calls[1])
}

func TestRasterizeMissingImage(t *testing.T) {
	r := NewRasterizer("pdftoppm", 150, &fakeRunner{})
	r.PageCount = staticCount(1)

	_, err := r.Rasterize(context.Background(), "in.pdf", t.TempDir())
	assert.True(t, errors.Is(err, ErrArtifactMissing))
}

func TestRasterizeProcessFailure(t *testing.T) {
	r := NewRasterizer("pdftoppm", 150, &fakeRunner{err: proc.ErrBinaryNotFound})
	r.PageCount = staticCount(2)

	paths, err := r.Rasterize(context.Background(), "in.pdf", t.TempDir())
	assert.True(t, errors.Is(err, proc.ErrExternalProcess))
	assert.Empty(t, paths)
}

func TestRasterizeEmptyDocument(t *testing.T) {
	r := NewRasterizer("", 0, &fakeRunner{})
	r.PageCount = staticCount(0)

	_, err := r.Rasterize(context.Background(), "in.pdf", t.TempDir())
	assert.True(t, errors.Is(err, ErrNoPages))
}

func TestPageCount(t *testing.T) {
	path := buildPDF(t, "one", "two")
	n, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = PageCount(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	path := buildPDF(t, "Hello", "World")

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello")
	assert.Contains(t, text, "World")
	assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "World"))
}

func TestExtractTextNotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.pdf")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o644))

	_, err := ExtractText(path)
	assert.Error(t, err)
}
