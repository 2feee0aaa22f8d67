package rlds

import "errors"

// ErrNoShards is returned when a split declares no shard lengths.
var ErrNoShards = errors.New("rlds: split has no shards")

// Plan describes which shards of a split to download to satisfy an episode
// budget. Shards holds original shard indices in order; Episodes is the
// number of episodes those shards actually contain, which may exceed the
// requested budget since shards are fetched whole.
type Plan struct {
	Shards   []int
	Episodes int64
}

// PlanShards computes the shard prefix needed for maxEpisodes episodes.
// Shards are accumulated in order until the budget is met. A budget of
// zero or less selects every shard.
func PlanShards(lengths []int64, maxEpisodes int64) (Plan, error) {
	if len(lengths) == 0 {
		return Plan{}, ErrNoShards
	}

	var plan Plan
	for idx, n := range lengths {
		if maxEpisodes > 0 && plan.Episodes >= maxEpisodes {
			break
		}
		plan.Shards = append(plan.Shards, idx)
		plan.Episodes += n
	}
	return plan, nil
}

// Truncate rewrites the split's shard lengths to cover only the planned
// shards. Call this before saving a rewritten sidecar so TFDS does not
// look for shards that were never downloaded.
func (s *SplitInfo) Truncate(plan Plan) {
	lengths := make([]int64, len(plan.Shards))
	for i, idx := range plan.Shards {
		lengths[i] = s.ShardLengths[idx]
	}
	s.ShardLengths = lengths
}
