package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/anoixa/image-helper/database/models"
	"github.com/anoixa/image-helper/internal/field"
	"github.com/anoixa/image-helper/utils"
)

// Outcome 单条记录的处理结果
type Outcome int

const (
	OutcomeRegenerated Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRegenerated:
		return "regenerated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ThumbnailTask 为一条记录重建缩略图
type ThumbnailTask struct {
	Photo       *models.Photo
	Field       *field.ImageField
	OnlyMissing bool
	DryRun      bool
	Timeout     time.Duration
}

// Execute 执行任务，panic 视为失败
func (t *ThumbnailTask) Execute(ctx context.Context) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Error().Uint("photo", t.Photo.ID).Interface("panic", r).Msg("thumbnail task panicked")
			outcome, err = OutcomeFailed, fmt.Errorf("panic: %v", r)
		}
	}()

	if t.Photo.Image.Name == "" {
		return OutcomeSkipped, nil
	}

	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	if t.OnlyMissing {
		st, err := t.Field.Storage()
		if err != nil {
			return OutcomeFailed, err
		}
		thumb := t.Field.ThumbnailName(t.Photo.Image.Name)
		exists, err := st.Exists(ctx, thumb)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("failed to check thumbnail %s: %w", thumb, err)
		}
		if exists {
			return OutcomeSkipped, nil
		}
	}

	if t.DryRun {
		utils.Logger.Info().
			Uint("photo", t.Photo.ID).
			Str("image", t.Photo.Image.Name).
			Msg("would regenerate thumbnail")
		return OutcomeRegenerated, nil
	}

	name, err := t.Field.RegenerateThumbnail(ctx, &t.Photo.Image)
	if err != nil {
		return OutcomeFailed, err
	}
	utils.Logger.Debug().Uint("photo", t.Photo.ID).Str("thumbnail", name).Msg("thumbnail regenerated")
	return OutcomeRegenerated, nil
}
