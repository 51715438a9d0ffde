package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RefreshRatingStats rebuilds the recipe_rating_stats materialized
// view. Display ratings lag live reviews by at most one refresh; the
// min-rating search filter aggregates live rows and is unaffected.
func RefreshRatingStats(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	if _, err := pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY recipe_rating_stats`); err != nil {
		if logger != nil {
			logger.Error("refresh recipe_rating_stats", slog.Any("error", err))
		}
		return err
	}
	if logger != nil {
		logger.Info("refreshed recipe_rating_stats", slog.String("job", "rating_refresh"))
	}
	return nil
}

// RatingRefreshHandler adapts RefreshRatingStats to an Asynq handler.
func RatingRefreshHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return RefreshRatingStats(ctx, pool, logger)
	}
}
