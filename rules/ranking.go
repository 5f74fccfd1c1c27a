package rules

import (
	"cmp"
	"slices"
)

// RankingEntry is a leaderboard line. It is computed on every read and never
// stored.
type RankingEntry struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Points   int    `json:"points"`
	Position int    `json:"position"`
	IsPro    bool   `json:"isPro"`
}

// ComputeRanking orders entries by points, highest first, and numbers them
// 1..N. Ties keep their input order and still get distinct positions.
func ComputeRanking(entries []RankingEntry) []RankingEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b RankingEntry) int {
		return cmp.Compare(b.Points, a.Points)
	})
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}
