// Package worker 批量重建缩略图
package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/utils"
)

const (
	defaultBatchSize   = 100
	defaultTaskTimeout = 2 * time.Minute
)

// Source 按批遍历待处理的记录，photos.Repository 满足该接口
type Source interface {
	InBatches(ctx context.Context, batchSize int, fn func(batch []*models.Photo) error) error
}

// Options 重建配置
type Options struct {
	// Workers 并发数，<=0 时为 1
	Workers int
	// RPS 每秒最多启动的任务数，<=0 不限速
	RPS float64
	// BatchSize 每批从数据库读取的记录数
	BatchSize int
	// OnlyMissing 只处理缩略图缺失的记录
	OnlyMissing bool
	// DryRun 只统计不写入
	DryRun bool
	// TaskTimeout 单条记录的超时
	TaskTimeout time.Duration
}

// Stats 重建统计
type Stats struct {
	Scanned     uint64
	Regenerated uint64
	Skipped     uint64
	Failed      uint64
}

// Regenerator 缩略图重建器
type Regenerator struct {
	field   *field.ImageField
	source  Source
	opts    Options
	limiter *rate.Limiter

	scanned     atomic.Uint64
	regenerated atomic.Uint64
	skipped     atomic.Uint64
	failed      atomic.Uint64
}

// NewRegenerator 创建重建器
func NewRegenerator(f *field.ImageField, source Source, opts Options) *Regenerator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}

	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}

	return &Regenerator{
		field:   f,
		source:  source,
		opts:    opts,
		limiter: rate.NewLimiter(limit, opts.Workers),
	}
}

// Run 遍历所有记录并重建缩略图
// 单条失败只计数并记录日志，只有遍历出错或 ctx 取消时返回错误
func (r *Regenerator) Run(ctx context.Context) (Stats, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	walkErr := r.source.InBatches(ctx, r.opts.BatchSize, func(batch []*models.Photo) error {
		for _, photo := range batch {
			if err := r.limiter.Wait(gctx); err != nil {
				return err
			}
			task := &ThumbnailTask{
				Photo:       photo,
				Field:       r.field,
				OnlyMissing: r.opts.OnlyMissing,
				DryRun:      r.opts.DryRun,
				Timeout:     r.opts.TaskTimeout,
			}
			r.scanned.Add(1)
			g.Go(func() error {
				outcome, err := task.Execute(gctx)
				r.record(task, outcome, err)
				return nil
			})
		}
		return nil
	})

	_ = g.Wait()
	stats := r.Stats()

	if walkErr != nil {
		return stats, walkErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	utils.Logger.Info().
		Uint64("scanned", stats.Scanned).
		Uint64("regenerated", stats.Regenerated).
		Uint64("skipped", stats.Skipped).
		Uint64("failed", stats.Failed).
		Bool("dry_run", r.opts.DryRun).
		Msg("thumbnail regeneration finished")
	return stats, nil
}

func (r *Regenerator) record(task *ThumbnailTask, outcome Outcome, err error) {
	switch outcome {
	case OutcomeRegenerated:
		r.regenerated.Add(1)
	case OutcomeSkipped:
		r.skipped.Add(1)
	default:
		r.failed.Add(1)
		utils.Logger.Warn().
			Err(err).
			Uint("photo", task.Photo.ID).
			Str("image", task.Photo.Image.Name).
			Msg("failed to regenerate thumbnail")
	}
}

// Stats 返回当前统计
func (r *Regenerator) Stats() Stats {
	return Stats{
		Scanned:     r.scanned.Load(),
		Regenerated: r.regenerated.Load(),
		Skipped:     r.skipped.Load(),
		Failed:      r.failed.Load(),
	}
}
