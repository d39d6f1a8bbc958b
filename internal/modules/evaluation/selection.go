package evaluation

import (
	"sort"

	"github.com/aristath/factorlab/internal/modules/redundancy"
	"github.com/aristath/factorlab/internal/modules/scoring"
)

// Suggestions is the usable-subset recommendation derived from a run:
// which factors are worth keeping once quality and redundancy are both
// accounted for.
type Suggestions struct {
	HighQuality    []string `json:"high_quality"`    // grades A and B
	LowPerformance []string `json:"low_performance"` // grades D and F
	Redundant      []string `json:"redundant"`       // group members minus representatives
	Recommended    []string `json:"recommended"`     // high quality minus redundant, topped up
}

// BuildSuggestions derives the selection sets. When the recommended set
// falls below floor, it is topped up with the best-ranked B/C factors not
// already excluded as redundant. All output is sorted for determinism.
func BuildSuggestions(ranking []RankingRow, groups []redundancy.Group, floor int) Suggestions {
	var s Suggestions

	gradeOf := make(map[string]scoring.Grade, len(ranking))
	for _, row := range ranking {
		gradeOf[row.FactorID] = row.Grade
		switch row.Grade {
		case scoring.GradeA, scoring.GradeB:
			s.HighQuality = append(s.HighQuality, row.FactorID)
		case scoring.GradeD, scoring.GradeF:
			s.LowPerformance = append(s.LowPerformance, row.FactorID)
		}
	}

	redundant := make(map[string]bool)
	for _, g := range groups {
		for _, member := range g.Members {
			if member != g.Representative {
				redundant[member] = true
				s.Redundant = append(s.Redundant, member)
			}
		}
	}

	recommended := make(map[string]bool)
	for _, id := range s.HighQuality {
		if !redundant[id] {
			recommended[id] = true
		}
	}

	// Top up from B/C factors in ranking order until the floor is met.
	if len(recommended) < floor {
		for _, row := range ranking {
			if len(recommended) >= floor {
				break
			}
			if recommended[row.FactorID] || redundant[row.FactorID] {
				continue
			}
			if row.Grade == scoring.GradeB || row.Grade == scoring.GradeC {
				recommended[row.FactorID] = true
			}
		}
	}

	for id := range recommended {
		s.Recommended = append(s.Recommended, id)
	}
	sort.Strings(s.HighQuality)
	sort.Strings(s.LowPerformance)
	sort.Strings(s.Redundant)
	sort.Strings(s.Recommended)
	return s
}
