package rlds

import (
	"errors"
	"reflect"
	"testing"
)

func TestPlanShards(t *testing.T) {
	tests := []struct {
		name         string
		lengths      []int64
		maxEpisodes  int64
		wantShards   []int
		wantEpisodes int64
	}{
		{
			name:         "budget within first shard",
			lengths:      []int64{10, 10, 10},
			maxEpisodes:  5,
			wantShards:   []int{0},
			wantEpisodes: 10,
		},
		{
			name:         "budget on shard boundary",
			lengths:      []int64{10, 10, 10},
			maxEpisodes:  10,
			wantShards:   []int{0},
			wantEpisodes: 10,
		},
		{
			name:         "budget spans shards",
			lengths:      []int64{10, 10, 10},
			maxEpisodes:  11,
			wantShards:   []int{0, 1},
			wantEpisodes: 20,
		},
		{
			name:         "budget exceeds dataset",
			lengths:      []int64{3, 4},
			maxEpisodes:  100,
			wantShards:   []int{0, 1},
			wantEpisodes: 7,
		},
		{
			name:         "zero budget selects everything",
			lengths:      []int64{3, 4, 5},
			maxEpisodes:  0,
			wantShards:   []int{0, 1, 2},
			wantEpisodes: 12,
		},
		{
			name:         "negative budget selects everything",
			lengths:      []int64{3},
			maxEpisodes:  -1,
			wantShards:   []int{0},
			wantEpisodes: 3,
		},
		{
			name:         "uneven shard lengths",
			lengths:      []int64{1, 50, 2},
			maxEpisodes:  2,
			wantShards:   []int{0, 1},
			wantEpisodes: 51,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanShards(tt.lengths, tt.maxEpisodes)
			if err != nil {
				t.Fatalf("PlanShards: %v", err)
			}
			if !reflect.DeepEqual(plan.Shards, tt.wantShards) {
				t.Errorf("shards: got %v, want %v", plan.Shards, tt.wantShards)
			}
			if plan.Episodes != tt.wantEpisodes {
				t.Errorf("episodes: got %d, want %d", plan.Episodes, tt.wantEpisodes)
			}
		})
	}
}

func TestPlanShardsEmpty(t *testing.T) {
	_, err := PlanShards(nil, 5)
	if !errors.Is(err, ErrNoShards) {
		t.Fatalf("expected ErrNoShards, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	s := &SplitInfo{
		Name:         "train",
		ShardLengths: []int64{10, 20, 30, 40},
	}
	plan, err := PlanShards(s.ShardLengths, 25)
	if err != nil {
		t.Fatalf("PlanShards: %v", err)
	}

	s.Truncate(plan)

	want := []int64{10, 20}
	if !reflect.DeepEqual(s.ShardLengths, want) {
		t.Errorf("shard lengths after truncate: got %v, want %v", s.ShardLengths, want)
	}
	if s.Episodes() != 30 {
		t.Errorf("episodes after truncate: got %d, want 30", s.Episodes())
	}
}
