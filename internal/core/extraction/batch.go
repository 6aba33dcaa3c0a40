package extraction

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"consolidation-service/internal/domain"
	"consolidation-service/internal/logging"
	"consolidation-service/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// FileExtractor extrai um único arquivo.
type FileExtractor interface {
	ExtractFile(ctx context.Context, path string) domain.Extraction
}

// Progress é chamado a cada arquivo concluído, possivelmente de goroutines diferentes.
type Progress func(done, total int, item domain.Extraction)

// BatchResult traz os resultados na mesma ordem dos caminhos de entrada.
type BatchResult struct {
	RunID string              `json:"run_id"`
	Items []domain.Extraction `json:"items"`
}

// Batch extrai vários arquivos em paralelo.
type Batch struct {
	extractor FileExtractor
	workers   int
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// NewBatch cria um executor com no máximo workers extrações simultâneas.
func NewBatch(extractor FileExtractor, workers int, log *zap.Logger, m *metrics.Metrics) *Batch {
	if workers <= 0 {
		workers = 1
	}
	return &Batch{extractor: extractor, workers: workers, log: logging.OrNop(log), metrics: m}
}

// Run processa todos os caminhos. Um arquivo com falha não interrompe os demais.
// Se ctx for cancelado, nenhum resultado parcial é devolvido.
func (b *Batch) Run(ctx context.Context, paths []string, progress Progress) (BatchResult, error) {
	runID := uuid.NewString()
	log := b.log.With(zap.String("run_id", runID))
	start := time.Now()

	results := make([]domain.Extraction, len(paths))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := b.extractor.ExtractFile(gctx, path)
			results[i] = res
			b.record(log, res)

			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(paths), res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("batch abandoned", zap.Error(err))
		return BatchResult{}, err
	}
	if err := ctx.Err(); err != nil {
		log.Warn("batch abandoned", zap.Error(err))
		return BatchResult{}, err
	}

	if b.metrics != nil {
		b.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	}
	log.Info("batch finished", zap.Int("files", len(paths)), zap.Duration("elapsed", time.Since(start)))
	return BatchResult{RunID: runID, Items: results}, nil
}

func (b *Batch) record(log *zap.Logger, res domain.Extraction) {
	if res.Failed() {
		reason := ""
		if res.Failure != nil {
			reason = res.Failure.Reason
		}
		log.Warn("extraction failed", zap.String("file", res.SourcePath), zap.String("error", reason))
		if b.metrics != nil {
			b.metrics.ExtractionFailures.Inc()
		}
		return
	}
	if b.metrics != nil {
		b.metrics.DocumentsExtracted.WithLabelValues(string(res.Document.Kind)).Inc()
	}
}

// ListFiles percorre root recursivamente e devolve os arquivos com as extensões dadas,
// sem diferenciar maiúsculas, em ordem léxica.
func ListFiles(root string, exts ...string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, want := range exts {
			if ext == strings.ToLower(want) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	return out, err
}
