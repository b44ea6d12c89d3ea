package rank

import "math"

type Rank struct {
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
	MaxPoints int64  `json:"max_points"`
}

type NextRankInfo struct {
	Rank         Rank  `json:"rank"`
	PointsNeeded int64 `json:"points_needed"`
}

// ranks 静态等级表，进程启动后只读
var ranks = []Rank{
	{Name: "Believer", MinPoints: 0, MaxPoints: 499},
	{Name: "Committed", MinPoints: 500, MaxPoints: 999},
	{Name: "Signal Giver", MinPoints: 1000, MaxPoints: 2499},
	{Name: "Curator", MinPoints: 2500, MaxPoints: 4999},
	{Name: "Scout", MinPoints: 5000, MaxPoints: 9999},
	{Name: "Super Scout", MinPoints: 10000, MaxPoints: 14999},
	{Name: "Cult Starter", MinPoints: 15000, MaxPoints: 24999},
	{Name: "Cult Leader", MinPoints: 25000, MaxPoints: 49999},
	{Name: "Inner Circle", MinPoints: 50000, MaxPoints: 99999},
	{Name: "The Belief Engine", MinPoints: 100000, MaxPoints: math.MaxInt64},
}

// RankFor 返回累计积分所属的等级
func RankFor(points int64) Rank {
	for _, r := range ranks {
		if points >= r.MinPoints && points <= r.MaxPoints {
			return r
		}
	}
	return ranks[0]
}

// NextRank 返回下一等级及所需积分，已是最高等级时返回false
func NextRank(points int64) (*NextRankInfo, bool) {
	current := RankFor(points)
	for i, r := range ranks {
		if r.Name == current.Name {
			if i == len(ranks)-1 {
				return nil, false
			}
			next := ranks[i+1]
			return &NextRankInfo{
				Rank:         next,
				PointsNeeded: next.MinPoints - points,
			}, true
		}
	}
	return nil, false
}

// All 返回完整等级表的副本
func All() []Rank {
	out := make([]Rank, len(ranks))
	copy(out, ranks)
	return out
}
