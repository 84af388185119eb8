package redis

import (
	"context"

	"github.com/harborline/catalogsearch/internal/db"
)

// ZAdd adds or updates a member with the given score.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZPopMin removes and returns up to count lowest-scored members.
func (s *Store) ZPopMin(ctx context.Context, key string, count int) ([]db.ScoredMember, error) {
	if count <= 0 {
		count = 1
	}
	cmd := s.b().Zpopmin().Key(key).Count(int64(count)).Build()
	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZPopMin, Err: err}
	}
	out := make([]db.ScoredMember, 0, len(scores))
	for _, zs := range scores {
		out = append(out, db.ScoredMember{Member: zs.Member, Score: zs.Score})
	}
	return out, nil
}

// ZRem removes members from a sorted set.
func (s *Store) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zrem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}
