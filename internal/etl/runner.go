package etl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"stopprep/internal/datasource"
	"stopprep/internal/datasource/file"
	"stopprep/internal/merge"
	"stopprep/internal/metrics"
	"stopprep/internal/parser/csv"
	"stopprep/internal/progress"
	"stopprep/internal/schema"
	"stopprep/internal/spool"
	"stopprep/internal/storage"
	"stopprep/internal/storage/parquet"
	"stopprep/internal/transformer"
)

// Test seams.
var (
	openSourceFn = func(ctx context.Context, s datasource.Source) (io.ReadCloser, error) { return s.Open(ctx) }
	nowFn        = time.Now
)

// Outcome of one source file in a run.
const (
	Converted = "converted"
	Skipped   = "skipped"
	FailedOut = "failed"
)

// Options configures a Runner.
type Options struct {
	Registry   *schema.Registry // schema.Default() when nil
	Layout     storage.Layout
	ScratchDir string // "" uses the OS temp dir
	CSV        csv.Options
	Window     int // batches read ahead of the transformer
	CountRows  bool
	Parquet    parquet.Options
	IDs        *transformer.IDChecker // nil disables the unique_id check
	Mem        memory.Allocator
	Log        *zap.Logger
}

// Result is the outcome of one source.
type Result struct {
	Source  file.Source
	Output  string
	Outcome string
	Rows    int64
	Elapsed time.Duration
	Class   string
	Err     error
}

// Summary is the outcome of a run.
type Summary struct {
	Results   []Result
	Converted int
	Skipped   int
	Failed    int
	// Canceled is set when the run stopped before visiting every source.
	Canceled error
}

// Err returns nil when every attempted file converted or was skipped.
func (s Summary) Err() error {
	var err error
	if s.Failed > 0 {
		err = errors.Newf("%d of %d files failed", s.Failed, len(s.Results))
	}
	if s.Canceled != nil {
		err = errors.CombineErrors(errors.Wrap(s.Canceled, "run interrupted"), err)
	}
	return err
}

// Runner converts source files one at a time.
type Runner struct {
	opt Options
	log *zap.Logger
}

// NewRunner returns a Runner with opt's defaults filled in.
func NewRunner(opt Options) *Runner {
	if opt.Registry == nil {
		opt.Registry = schema.Default()
	}
	if opt.Mem == nil {
		opt.Mem = memory.DefaultAllocator
	}
	if opt.Parquet.Mem == nil {
		opt.Parquet.Mem = opt.Mem
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	return &Runner{opt: opt, log: opt.Log}
}

// Run converts every source whose artifact does not exist yet, in order.
// A failing file is logged and the run moves on; only cancellation of ctx
// stops it early.
func (r *Runner) Run(ctx context.Context, sources []file.Source) Summary {
	var sum Summary
	r.log.Info("run: sources found", zap.Int("files", len(sources)))

	var todo []file.Source
	for _, src := range sources {
		out := r.opt.Layout.Path(src.ID)
		exists, err := r.opt.Layout.Exists(src.ID)
		switch {
		case err != nil:
			r.record(&sum, Result{Source: src, Output: out, Outcome: FailedOut, Class: ClassIO, Err: err})
		case exists:
			r.log.Info("run: skipping, already processed", zap.String("file_id", src.ID), zap.String("output", out))
			r.record(&sum, Result{Source: src, Output: out, Outcome: Skipped})
		default:
			todo = append(todo, src)
		}
	}
	if len(todo) == 0 {
		r.log.Info("run: all files have already been processed")
		return sum
	}
	r.log.Info(fmt.Sprintf("run: %d files need processing", len(todo)), zap.Int("pending", len(todo)))

	if err := r.opt.Layout.Ensure(); err != nil {
		for _, src := range todo {
			r.record(&sum, Result{Source: src, Output: r.opt.Layout.Path(src.ID), Outcome: FailedOut, Class: ClassIO, Err: err})
		}
		return sum
	}

	for i, src := range todo {
		if err := ctx.Err(); err != nil {
			sum.Canceled = err
			break
		}
		r.log.Info(fmt.Sprintf("run: processing file %d of %d", i+1, len(todo)),
			zap.String("file_id", src.ID), zap.String("input", src.Path))

		job := NewJob(src, r.opt.Layout.Path(src.ID))
		res := Result{Source: src, Output: job.Output}

		// Another source may have produced the same file id earlier in this run.
		exists, err := r.opt.Layout.Exists(src.ID)
		if err != nil {
			res.Outcome, res.Class, res.Err = FailedOut, ClassIO, err
			r.log.Error("run: skip check failed, continuing with next file",
				zap.String("file_id", src.ID), zap.Error(err))
			r.record(&sum, res)
			continue
		}
		if exists {
			r.log.Warn("run: output appeared since the pre-scan, skipping",
				zap.String("file_id", src.ID), zap.String("output", job.Output))
			res.Outcome = Skipped
			r.record(&sum, res)
			continue
		}

		err = r.Convert(ctx, job)
		res.Rows, res.Elapsed = job.Rows, job.Finished.Sub(job.Started)
		if err != nil {
			res.Outcome, res.Class, res.Err = FailedOut, Classify(err), err
			r.log.Error("run: file failed, continuing with next file",
				zap.String("file_id", src.ID), zap.String("class", res.Class), zap.Error(err))
			r.record(&sum, res)
			if res.Class == ClassCanceled {
				sum.Canceled = ctx.Err()
				break
			}
			continue
		}
		res.Outcome = Converted
		r.record(&sum, res)
	}

	r.log.Info("run: finished",
		zap.Int("converted", sum.Converted), zap.Int("skipped", sum.Skipped), zap.Int("failed", sum.Failed))
	return sum
}

func (r *Runner) record(sum *Summary, res Result) {
	sum.Results = append(sum.Results, res)
	switch res.Outcome {
	case Converted:
		sum.Converted++
	case Skipped:
		sum.Skipped++
	case FailedOut:
		sum.Failed++
	}
	metrics.RecordFile(res.Source.ID, res.Outcome, res.Class)
}

// Convert runs job from Pending to Done. On any error the job ends Failed,
// its scratch directory is removed, and nothing is published at job.Output.
func (r *Runner) Convert(ctx context.Context, job *Job) (err error) {
	log := r.log.With(zap.String("file_id", job.Source.ID))
	job.Started = nowFn()
	defer func() {
		job.Finished = nowFn()
		if err != nil {
			job.fail(err)
		}
		metrics.RecordStep(job.Source.ID, "file", err, job.Finished.Sub(job.Started))
	}()
	log.Info("convert: start", zap.String("input", job.Source.Path), zap.String("output", job.Output))

	if r.opt.CountRows {
		if job.Total, err = r.count(ctx, job); err != nil {
			return err
		}
		log.Info("convert: total rows to process", zap.Int64("total", job.Total))
	}

	sc := r.opt.Registry.ArrowSchema()
	sp, err := spool.Open(r.opt.ScratchDir, job.Source.ID, sc, r.opt.Parquet)
	if err != nil {
		return err
	}
	defer func() {
		// No-op after a successful merge, which closes the spool itself.
		if cerr := sp.Close(); cerr != nil {
			if err == nil {
				log.Warn("convert: scratch cleanup failed", zap.Error(cerr))
				return
			}
			err = errors.CombineErrors(err, cerr)
		}
	}()

	if err := job.transition(Reading); err != nil {
		return err
	}
	rc, err := openSourceFn(ctx, job.Source)
	if err != nil {
		return err
	}
	rd, err := csv.NewReader(rc, job.Source.Path, r.opt.Registry, r.opt.CSV)
	if err != nil {
		return err
	}
	defer rd.Close()

	ids := r.opt.IDs.Scope()
	tr := transformer.New(r.opt.Registry, job.Source.ID,
		transformer.WithAllocator(r.opt.Mem),
		transformer.WithIDScope(ids),
		transformer.WithLogger(log),
	)
	if proj, perr := transformer.Project(r.opt.Registry, rd.Columns()); perr == nil {
		log.Debug("reader: header mapped",
			zap.Int("source_columns", len(rd.Columns())),
			zap.Int("missing", len(proj.Missing)), zap.Int("dropped", len(proj.Dropped)))
		metrics.RecordRow(job.Source.ID, "dropped_columns", int64(len(proj.Dropped)))
	}

	tracker := progress.NewTracker(job.Total)
	err = csv.Prefetch(ctx, rd, r.opt.Window, func(b *transformer.SourceBatch) error {
		n := int64(b.Len())
		metrics.RecordRow(job.Source.ID, "read", n)

		if err := job.transition(Transforming); err != nil {
			return err
		}
		t0 := nowFn()
		rec, err := tr.Transform(b)
		metrics.RecordStep(job.Source.ID, "transform", err, nowFn().Sub(t0))
		if err != nil {
			return err
		}
		defer rec.Release()

		if err := job.transition(Spooling); err != nil {
			return err
		}
		t0 = nowFn()
		h, err := sp.Write(rec)
		metrics.RecordStep(job.Source.ID, "spool", err, nowFn().Sub(t0))
		if err != nil {
			return err
		}
		job.Batches++
		job.Rows += h.Rows
		metrics.RecordBatches(job.Source.ID, 1)

		est := tracker.Add(h.Rows)
		log.Info("convert: batch spooled", zap.Int("batch", h.Seq), progress.Field(est))
		return job.transition(Reading)
	})
	if err != nil {
		return err
	}

	if err := job.transition(Merging); err != nil {
		return err
	}
	log.Info("convert: combining batches into final output", zap.Int("batches", job.Batches))
	m := &merge.Merger{Schema: sc, Options: r.opt.Parquet, Mem: r.opt.Mem, Log: log}
	t0 := nowFn()
	rows, err := m.Merge(ctx, sp, job.Output)
	metrics.RecordStep(job.Source.ID, "merge", err, nowFn().Sub(t0))
	if err != nil {
		return err
	}
	if rows != job.Rows {
		// The artifact is already published; this only flags an internal bug.
		log.Error("convert: merged row count differs from spooled rows",
			zap.Int64("merged", rows), zap.Int64("spooled", job.Rows))
	}
	metrics.RecordRow(job.Source.ID, "written", rows)

	ids.Commit()
	if n, first := ids.Duplicates(); n > 0 {
		log.Warn("convert: duplicate unique_id values", zap.Int64("duplicates", n), zap.String("first", first))
		metrics.RecordRow(job.Source.ID, "duplicate_ids", n)
	}

	if err := job.transition(Done); err != nil {
		return err
	}
	elapsed := nowFn().Sub(job.Started)
	final := progress.Compute(rows, elapsed, job.Total, nowFn())
	log.Info("convert: finished",
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed.Truncate(time.Millisecond)),
		zap.Float64("avg_rows_per_sec", final.Rate),
		zap.String("output", job.Output))
	return nil
}

func (r *Runner) count(ctx context.Context, job *Job) (n int64, err error) {
	t0 := nowFn()
	defer func() { metrics.RecordStep(job.Source.ID, "count", err, nowFn().Sub(t0)) }()

	rc, err := openSourceFn(ctx, job.Source)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return csv.CountRecords(ctx, rc, job.Source.Path, r.opt.CSV)
}
