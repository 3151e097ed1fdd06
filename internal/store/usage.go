package store

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const tableUsage = "usage_counters"

// usageRepo increments with a single conditional UPDATE ... RETURNING, so
// concurrent requests cannot under-count and a rejected request leaves the
// counter untouched.
type usageRepo struct {
	s *Store
}

func (r *usageRepo) Increment(ctx context.Context, userID, day string, limit int) (int, bool, error) {
	_, err := r.s.exec(ctx, builder().Insert(tableUsage).
		Columns("user_id", "day", "count").
		Values(userID, day, 0).
		OnConflict(entsql.ConflictColumns("user_id", "day"), entsql.DoNothing()))
	if err != nil {
		return 0, false, fmt.Errorf("seed usage counter: %w", err)
	}

	var count int
	err = r.s.queryRow(ctx, builder().Update(tableUsage).
		Add("count", 1).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("day", day),
			entsql.LT("count", limit),
		)).
		Returning("count"), &count)
	if errors.Is(err, ErrNotFound) {
		current, cerr := r.Count(ctx, userID, day)
		if cerr != nil {
			return 0, false, cerr
		}
		return current, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment usage counter: %w", err)
	}
	return count, true, nil
}

func (r *usageRepo) Count(ctx context.Context, userID, day string) (int, error) {
	var count int
	err := r.s.queryRow(ctx, builder().Select("count").
		From(entsql.Table(tableUsage)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("day", day))), &count)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage counter: %w", err)
	}
	return count, nil
}
