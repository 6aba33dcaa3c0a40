package extraction

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"consolidation-service/internal/domain"
	"consolidation-service/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	fn func(ctx context.Context, path string) domain.Extraction
}

func (f fakeExtractor) ExtractFile(ctx context.Context, path string) domain.Extraction {
	return f.fn(ctx, path)
}

func TestBatchKeepsOrderAndSurvivesFailures(t *testing.T) {
	ex := fakeExtractor{fn: func(_ context.Context, path string) domain.Extraction {
		if strings.HasPrefix(path, "bad") {
			return failure(path, ErrUnknownDocument)
		}
		return domain.Extraction{SourcePath: path, Document: &domain.ExtractedDocument{Kind: domain.KindInvoice, SourcePath: path}}
	}}

	paths := []string{"a.xml", "bad1.xml", "b.xml", "c.xml", "bad2.xml"}
	var mu sync.Mutex
	var seen []int
	res, err := NewBatch(ex, 3, nil, metrics.New()).Run(context.Background(), paths, func(done, total int, _ domain.Extraction) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, len(paths), total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	require.Len(t, res.Items, len(paths))
	assert.NotEmpty(t, res.RunID)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, seen)

	for i, p := range paths {
		assert.Equal(t, p, res.Items[i].SourcePath)
		assert.Equal(t, strings.HasPrefix(p, "bad"), res.Items[i].Failed())
	}
}

func TestBatchCancellationDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	ex := fakeExtractor{fn: func(_ context.Context, path string) domain.Extraction {
		if calls.Add(1) == 2 {
			cancel()
		}
		return domain.Extraction{SourcePath: path, Document: &domain.ExtractedDocument{Kind: domain.KindTransport}}
	}}

	paths := make([]string, 20)
	for i := range paths {
		paths[i] = "f.xml"
	}
	res, err := NewBatch(ex, 1, nil, nil).Run(ctx, paths, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Items)
	assert.Less(t, int(calls.Load()), len(paths))
}

func TestListFilesIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "EMPRESA", "2026"), 0o755))
	for _, name := range []string{"a.xml", "EMPRESA/b.XML", "EMPRESA/2026/c.Xml", "EMPRESA/nota.pdf"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	files, err := ListFiles(root, ".xml")
	require.NoError(t, err)
	assert.Len(t, files, 3)

	pdfs, err := ListFiles(root, ".pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "EMPRESA", "nota.pdf")}, pdfs)
}
