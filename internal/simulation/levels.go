package simulation

import "snake-arena-server/internal/model"

// LevelForFood implements the §4.4 level function: level(n) = floor(n/5)+1.
func LevelForFood(totalFoodEaten int) int {
	return totalFoodEaten/5 + 1
}

// TickRateHz implements the §4.4 tick-rate formula: min(16, 5+2*(level-1))
// for multi/single, and that same bound multiplied by 1.015 for solo (the
// ×1.015 is applied after the min, so solo can slightly exceed 16Hz).
func TickRateHz(level int, mode model.Mode) float64 {
	base := 5 + 2*float64(level-1)
	if base > 16 {
		base = 16
	}
	if mode == model.ModeSolo {
		base *= 1.015
	}
	return base
}

// PeriodMs converts a tick rate in Hz to a period in milliseconds.
func PeriodMs(tickRateHz float64) float64 {
	return 1000 / tickRateHz
}
