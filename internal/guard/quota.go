// Package guard enforces per-plan daily quotas and the single-flight
// locks that keep a conversation's message slots single-writer.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/internal/model"
)

// ErrQuotaExceeded is returned before dispatch when the day's counter
// has reached the plan's cap. The operation is never attempted.
var ErrQuotaExceeded = errors.New("daily quota exceeded")

// Counters are kept past the day boundary so a rolling window can be
// inspected; two days covers every timezone skew.
const counterTTL = 48 * time.Hour

// Quota tracks per-user daily counters in Redis.
type Quota struct {
	rdb *redis.Client
	now func() time.Time
}

func NewQuota(rdb *redis.Client) *Quota {
	return &Quota{rdb: rdb, now: time.Now}
}

func (q *Quota) key(userID int64, op model.QuotaOp) string {
	return fmt.Sprintf("quota:%d:%s:%s", userID, op, q.now().UTC().Format("20060102"))
}

// CheckAvailable returns ErrQuotaExceeded when the user has no budget
// left for op today. It never increments.
func (q *Quota) CheckAvailable(ctx context.Context, userID int64, plan model.Plan, op model.QuotaOp) error {
	limit := model.DailyLimit(plan, op)
	if limit == model.Unlimited {
		return nil
	}
	if limit <= 0 {
		return ErrQuotaExceeded
	}

	used, err := q.Used(ctx, userID, op)
	if err != nil {
		return err
	}
	if used >= limit {
		ctx = logger.WithLogFields(ctx, logger.LogFields{UserID: &userID, Component: "six.guard.quota"})
		slog.InfoContext(ctx, "quota exhausted", "op", op, "plan", plan, "used", used, "limit", limit)
		return ErrQuotaExceeded
	}
	return nil
}

// Commit increments today's counter by one. Call only after the
// operation succeeded; failures and cancellations never commit.
func (q *Quota) Commit(ctx context.Context, userID int64, op model.QuotaOp) error {
	key := q.key(userID, op)

	pipe := q.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("committing quota %s: %w", key, err)
	}
	return nil
}

// Used returns today's count for op.
func (q *Quota) Used(ctx context.Context, userID int64, op model.QuotaOp) (int, error) {
	used, err := q.rdb.Get(ctx, q.key(userID, op)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading quota counter: %w", err)
	}
	return used, nil
}

// Remaining returns the budget left today, or model.Unlimited.
func (q *Quota) Remaining(ctx context.Context, userID int64, plan model.Plan, op model.QuotaOp) (int, error) {
	limit := model.DailyLimit(plan, op)
	if limit == model.Unlimited {
		return model.Unlimited, nil
	}
	used, err := q.Used(ctx, userID, op)
	if err != nil {
		return 0, err
	}
	if remaining := limit - used; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}
