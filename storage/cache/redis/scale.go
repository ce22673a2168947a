package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/credeval/core"
	"github.com/trezcool/credeval/core/gpa"
	"github.com/trezcool/credeval/core/scale"
)

const gradeMapPrefix = "credeval:scale:grades:" // String: grades:{scale name} -> JSON grade map

// ScaleRepository is a scale.Repository whose grade maps are read through Redis.
// Entries are dropped by Invalidate, which is meant to be subscribed to scale changes.
type ScaleRepository struct {
	scale.Repository

	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

var _ scale.Repository = (*ScaleRepository)(nil) // interface compliance check

func NewScaleRepository(next scale.Repository, client *redis.Client, ttl time.Duration, logger core.Logger) *ScaleRepository {
	return &ScaleRepository{Repository: next, client: client, ttl: ttl, logger: logger}
}

// NewClient connects to the configured Redis server.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func gradeMapKey(name string) string {
	return gradeMapPrefix + name
}

// GradeMap serves the grade map from Redis, loading and storing it on a miss.
// Redis failures are logged and the repository is used directly.
func (repo *ScaleRepository) GradeMap(ctx context.Context, name string) (gpa.GradeMap, error) {
	key := gradeMapKey(name)

	data, err := repo.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var grades gpa.GradeMap
		if err = json.Unmarshal(data, &grades); err == nil {
			return grades, nil
		}
		repo.logger.Warn("decoding cached grade map", err, map[string]interface{}{"scale": name})
	case err != redis.Nil:
		repo.logger.Warn("reading cached grade map", err, map[string]interface{}{"scale": name})
	}

	grades, err := repo.Repository.GradeMap(ctx, name)
	if err != nil {
		return nil, err
	}
	if data, err = json.Marshal(grades); err == nil {
		err = repo.client.Set(ctx, key, data, repo.ttl).Err()
	}
	if err != nil {
		repo.logger.Warn("caching grade map", err, map[string]interface{}{"scale": name})
	}
	return grades, nil
}

// UpdateScale updates the scale, then drops its cached grade maps under the old and new names
// so that nothing reads a stale mapping once the update returns.
func (repo *ScaleRepository) UpdateScale(ctx context.Context, sc scale.GradingScale) (scale.GradingScale, error) {
	old, err := repo.Repository.GetScale(ctx, scale.GetFilter{ID: sc.ID})
	if err != nil {
		return scale.GradingScale{}, err
	}
	updated, err := repo.Repository.UpdateScale(ctx, sc)
	if err != nil {
		return scale.GradingScale{}, err
	}
	repo.drop(ctx, old.Name, updated.Name)
	return updated, nil
}

// DeleteScale deletes the scale and its cached grade map.
func (repo *ScaleRepository) DeleteScale(ctx context.Context, id string) error {
	old, err := repo.Repository.GetScale(ctx, scale.GetFilter{ID: id})
	if err != nil {
		return err
	}
	if err = repo.Repository.DeleteScale(ctx, id); err != nil {
		return err
	}
	repo.drop(ctx, old.Name)
	return nil
}

// Invalidate drops the cached grade maps of the changed scale, under its old and new names.
func (repo *ScaleRepository) Invalidate(ctx context.Context, ev scale.Event) {
	repo.drop(ctx, ev.OldName, ev.Scale.Name)
}

func (repo *ScaleRepository) drop(ctx context.Context, names ...string) {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			keys = append(keys, gradeMapKey(name))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := repo.client.Del(ctx, keys...).Err(); err != nil {
		repo.logger.Error("invalidating cached grade map", err, map[string]interface{}{"keys": keys})
	}
}
