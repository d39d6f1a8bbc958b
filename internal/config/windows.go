package config

import (
	"fmt"
	"sort"
)

// WindowConfig bundles the rolling-analysis windows and forecast horizons
// for one strategy style. Configurations are static; the engine never
// mutates one.
type WindowConfig struct {
	ICWindows       []int  // rolling IC window lengths, ascending
	PrimaryWindow   int    // window used for horizon selection and scoring
	StabilityWindow int    // window for raw-factor stability analysis
	Horizons        []int  // forecast horizons (periods ahead), ascending
	Description     string // human-readable strategy description
}

// strategyWindows are the predefined window presets, selected by label.
var strategyWindows = map[string]WindowConfig{
	"ultra_short": {
		ICWindows:       []int{5, 10, 15},
		PrimaryWindow:   10,
		StabilityWindow: 15,
		Horizons:        []int{1, 3, 5},
		Description:     "Ultra short: intraday-to-weekly holding, high sensitivity",
	},
	"short_term": {
		ICWindows:       []int{10, 20, 30},
		PrimaryWindow:   20,
		StabilityWindow: 20,
		Horizons:        []int{1, 3, 5, 10},
		Description:     "Short term: 1-4 week holding, fast response",
	},
	"medium_short": {
		ICWindows:       []int{15, 30, 45},
		PrimaryWindow:   30,
		StabilityWindow: 30,
		Horizons:        []int{1, 3, 5, 10},
		Description:     "Medium-short: monthly holding, balanced sensitivity",
	},
	"medium_term": {
		ICWindows:       []int{30, 60, 90},
		PrimaryWindow:   60,
		StabilityWindow: 60,
		Horizons:        []int{5, 10},
		Description:     "Medium term: quarterly holding, classic 60-period window",
	},
	"multi_timeframe": {
		ICWindows:       []int{10, 20, 30, 60},
		PrimaryWindow:   20,
		StabilityWindow: 30,
		Horizons:        []int{1, 3, 5, 10},
		Description:     "Multi timeframe: blended short and medium signals",
	},
}

// GetWindowConfig returns the window preset for a strategy label. Unknown
// labels are a configuration error.
func GetWindowConfig(strategy string) (WindowConfig, error) {
	wc, ok := strategyWindows[strategy]
	if !ok {
		return WindowConfig{}, fmt.Errorf("unknown strategy label %q (known: %v)", strategy, StrategyLabels())
	}
	return wc, nil
}

// StrategyLabels lists the known presets in stable order.
func StrategyLabels() []string {
	labels := make([]string, 0, len(strategyWindows))
	for label := range strategyWindows {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// ValidateWindows checks a window list: non-empty, ascending, and no
// window below the minimum.
func ValidateWindows(windows []int, minWindow int) error {
	if len(windows) == 0 {
		return fmt.Errorf("window list is empty")
	}
	prev := 0
	for _, w := range windows {
		if w < minWindow {
			return fmt.Errorf("window %d is below the minimum %d", w, minWindow)
		}
		if w <= prev {
			return fmt.Errorf("windows must be strictly ascending, got %v", windows)
		}
		prev = w
	}
	return nil
}
