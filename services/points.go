package services

import (
	"sort"

	"github.com/darezone/api/config"
)

// PointsSchedule maps a check-in's resulting streak to the points it earns.
// The rule with the highest MinStreak not above the streak wins.
type PointsSchedule struct {
	rules []config.PointsRule
}

// NewPointsSchedule sorts rules by MinStreak. An empty rule set awards nothing.
func NewPointsSchedule(rules []config.PointsRule) PointsSchedule {
	sorted := append([]config.PointsRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinStreak < sorted[j].MinStreak })
	return PointsSchedule{rules: sorted}
}

// DefaultPointsSchedule awards 10 for a fresh streak and 20 once it continues.
func DefaultPointsSchedule() PointsSchedule {
	return NewPointsSchedule(config.Defaults().PointsSchedule)
}

// Award returns the points for a check-in that leaves the streak at streak.
func (p PointsSchedule) Award(streak int) int {
	points := 0
	for _, r := range p.rules {
		if streak >= r.MinStreak {
			points = r.Points
		}
	}
	return points
}
