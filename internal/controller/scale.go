package controller

import "math"

// Hub value ranges for percentage based functions.
const (
	dimMax              = 255
	colorTemperatureMax = 600
)

// toHub scales a 0-100 percentage to 0-limit.
func toHub(percent float64, limit int) int {
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return int(math.Round(percent * float64(limit) / 100))
}

// fromHub scales 0-limit to a 0-100 percentage.
func fromHub(value, limit int) int {
	if value < 0 {
		value = 0
	} else if value > limit {
		value = limit
	}
	return int(math.Round(float64(value) * 100 / float64(limit)))
}
