// Package cohort builds entry cohorts over per-address lifecycle states and
// computes right-censored retention curves against them.
package cohort

import (
	"fmt"

	"github.com/its-DeFine/livepeer-delegation-research-sub000/internal/domain"
)

// Build collects a cohort of all addresses whose first bond falls inside
// [windowStart, windowEnd). Entry timestamps are the members' first bond
// timestamps.
func Build(name string, states map[string]*domain.AddressState, windowStart, windowEnd int64) (*domain.Cohort, error) {
	if windowStart >= windowEnd {
		return nil, fmt.Errorf("cohort %s: window start %d not before end %d", name, windowStart, windowEnd)
	}

	c := &domain.Cohort{
		Name:        name,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Members:     make(map[string]int64),
	}
	for addr, s := range states {
		if s.FirstBondTS == 0 {
			continue
		}
		if s.FirstBondTS >= windowStart && s.FirstBondTS < windowEnd {
			c.Members[addr] = s.FirstBondTS
		}
	}
	return c, nil
}

// exitTS returns a member's exit timestamp under the chosen definition,
// 0 if the member never exited.
func exitTS(s *domain.AddressState, def domain.ExitDefinition) int64 {
	switch def {
	case domain.ExitByFirstUnbond:
		return s.FirstUnbondTS
	case domain.ExitByFirstWithdraw:
		return s.FirstExitTS
	}
	return 0
}

// Retention computes the churn outcome at each horizon. A member enters a
// horizon's denominator only once now - entry >= horizon; members younger
// than the horizon are censored, not counted as retained.
func Retention(c *domain.Cohort, states map[string]*domain.AddressState, def domain.ExitDefinition, horizonsDays []int, now int64) ([]domain.RetentionPoint, error) {
	switch def {
	case domain.ExitByFirstUnbond, domain.ExitByFirstWithdraw:
	default:
		return nil, fmt.Errorf("unknown exit definition %q", def)
	}

	points := make([]domain.RetentionPoint, 0, len(horizonsDays))
	for _, days := range horizonsDays {
		horizon := int64(days) * 24 * 3600
		point := domain.RetentionPoint{HorizonDays: days}

		for addr, entry := range c.Members {
			if now-entry < horizon {
				continue
			}
			point.Eligible++

			s, ok := states[addr]
			if !ok {
				continue
			}
			if exit := exitTS(s, def); exit != 0 && exit-entry <= horizon {
				point.Exited++
			}
		}

		if point.Eligible > 0 {
			point.PctExited = float64(point.Exited) / float64(point.Eligible)
		}
		points = append(points, point)
	}
	return points, nil
}
