package bake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/pkg/formats"
)

// BlockExt is the extension of map block export files.
const BlockExt = ".hjson"

// Loader reads a map block by id.
type Loader interface {
	Load(id string) (*formats.MapBlock, error)
}

// DirLoader loads <Dir>/<id>.hjson exports.
type DirLoader struct {
	Dir string
}

// Path returns the export path of a block.
func (l DirLoader) Path(id string) string {
	return filepath.Join(l.Dir, id+BlockExt)
}

// Load implements Loader.
func (l DirLoader) Load(id string) (*formats.MapBlock, error) {
	return formats.ParseMapBlockFile(l.Path(id))
}

// Exists reports whether the export of a block is present.
func (l DirLoader) Exists(id string) bool {
	info, err := os.Stat(l.Path(id))
	return err == nil && !info.IsDir()
}

// BlockIDs returns the xblock ids of meta whose export file exists, in
// metadata order without duplicates.
func BlockIDs(meta *formats.MapMetadata, l DirLoader) (ids, missing []string) {
	for _, id := range meta.XBlocks() {
		if l.Exists(id) {
			ids = append(ids, id)
		} else {
			missing = append(missing, id)
		}
	}
	return ids, missing
}

// Summary counts the outcome of a batch.
type Summary struct {
	Total     int
	Counts    map[State]int
	Failed    []string
	Elapsed   time.Duration
	Cancelled bool
}

// Count returns the number of blocks that ended in s.
func (s Summary) Count(st State) int { return s.Counts[st] }

// Fields returns the summary as log fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("succeeded", s.Counts[StateSucceeded]),
		zap.Int("skipped", s.Counts[StateSkip]),
		zap.Int("no_geometry", s.Counts[StateNoGeometry]),
		zap.Int("failed", s.Counts[StateFailed]),
		zap.Strings("failed_ids", s.Failed),
		logger.Elapsed(s.Elapsed),
		zap.Bool("cancelled", s.Cancelled),
	}
}

// Batch bakes a list of blocks in order, one at a time.
type Batch struct {
	orch   *Orchestrator
	loader Loader
	log    *zap.Logger
}

// NewBatch creates a batch driver. A nil logger uses the global one.
func NewBatch(orch *Orchestrator, loader Loader, log *zap.Logger) *Batch {
	return &Batch{
		orch:   orch,
		loader: loader,
		log:    logger.Or(log).Named("batch"),
	}
}

// Run bakes every block in ids and keeps going whatever each outcome.
// Cancellation of ctx is observed between blocks only.
func (b *Batch) Run(ctx context.Context, ids []string) Summary {
	start := time.Now()
	sum := Summary{Counts: make(map[State]int)}

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			sum.Cancelled = true
			b.log.Warn("batch cancelled", zap.Int("remaining", len(ids)-i), zap.Error(err))
			break
		}

		res := b.bakeOne(ctx, id)
		sum.Total++
		sum.Counts[res.State]++
		if res.State == StateFailed {
			sum.Failed = append(sum.Failed, id)
		}

		fields := []zap.Field{
			logger.Block(id),
			logger.State(res.State),
			logger.Elapsed(res.Elapsed),
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(ids))),
		}
		if res.State == StateSucceeded {
			fields = append(fields, zap.Int("polys", res.Polys))
		}
		if res.Err != nil {
			fields = append(fields, zap.Error(res.Err))
		}
		b.log.Info("block done", fields...)
	}

	sum.Elapsed = time.Since(start)
	b.log.Info("batch done", sum.Fields()...)
	return sum
}

func (b *Batch) bakeOne(ctx context.Context, id string) Result {
	start := time.Now()
	block, err := b.loader.Load(id)
	if err != nil {
		return Result{BlockID: id, State: StateFailed, Err: fmt.Errorf("loading block: %w", err), Elapsed: time.Since(start)}
	}
	if block == nil {
		return Result{BlockID: id, State: StateFailed, Err: errors.New("loading block: no data"), Elapsed: time.Since(start)}
	}
	return b.orch.Bake(ctx, block)
}
