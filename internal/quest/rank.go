// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package quest

import "math"

// =============================================================================
// RANK LADDER
// =============================================================================

// Rank is a named tier on the progression ladder.
type Rank struct {
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
}

// DailyBonus is awarded once for every fully completed day.
const DailyBonus = 50

// ranks is the ladder in ascending threshold order.
// CalculateRank depends on this ordering.
var ranks = []Rank{
	{Name: "Novice", Threshold: 0},
	{Name: "Squire", Threshold: 50},
	{Name: "Knight", Threshold: 100},
	{Name: "Marquis", Threshold: 200},
	{Name: "Duke", Threshold: 500},
	{Name: "Sovereign", Threshold: 1000},
}

// Ranks returns a copy of the ladder in ascending order.
func Ranks() []Rank {
	out := make([]Rank, len(ranks))
	copy(out, ranks)
	return out
}

// CalculateRank returns the highest rank whose threshold the given point
// total has reached. Negative totals resolve to the lowest rank.
func CalculateRank(points int) Rank {
	current := ranks[0]
	for _, r := range ranks {
		if points >= r.Threshold {
			current = r
		}
	}
	return current
}

// NextRank returns the rank above the given point total, or false when the
// top of the ladder is reached.
func NextRank(points int) (Rank, bool) {
	for _, r := range ranks {
		if points < r.Threshold {
			return r, true
		}
	}
	return Rank{}, false
}

// PointsToNext returns how many points remain until the next rank,
// or 0 at the top of the ladder.
func PointsToNext(points int) int {
	next, ok := NextRank(points)
	if !ok {
		return 0
	}
	return next.Threshold - points
}

// =============================================================================
// PROGRESS AGGREGATION
// =============================================================================

// Progress is the derived scoring summary for a week plan.
type Progress struct {
	BasePoints  int  `json:"basePoints"`
	BonusDays   int  `json:"bonusDays"`
	TotalPoints int  `json:"totalPoints"`
	Rank        Rank `json:"rank"`
	ToNext      int  `json:"pointsToNext"`
	WeeklyPct   int  `json:"weeklyPct"`
}

// DayComplete reports whether a day earns the daily bonus: it must have at
// least one enabled quest, and every enabled quest must be done. A day with
// nothing enabled never counts as complete.
func DayComplete(p DayPlan) bool {
	enabled := 0
	for _, q := range p.Quests {
		if !q.Enabled {
			continue
		}
		enabled++
		if !q.Done {
			return false
		}
	}
	return enabled > 0
}

// CalculateProgress derives the scoring summary from a week plan.
// Disabled quests contribute nothing, done or not.
func CalculateProgress(plans []DayPlan) Progress {
	base := 0
	bonusDays := 0
	enabledTotal := 0
	enabledDone := 0

	for _, p := range plans {
		for _, q := range p.Quests {
			if !q.Enabled {
				continue
			}
			enabledTotal++
			if q.Done {
				enabledDone++
				base += q.Points
			}
		}
		if DayComplete(p) {
			bonusDays++
		}
	}

	total := base + bonusDays*DailyBonus

	pct := 0
	if enabledTotal > 0 {
		pct = int(math.Round(float64(enabledDone) / float64(enabledTotal) * 100))
	}

	return Progress{
		BasePoints:  base,
		BonusDays:   bonusDays,
		TotalPoints: total,
		Rank:        CalculateRank(total),
		ToNext:      PointsToNext(total),
		WeeklyPct:   pct,
	}
}
