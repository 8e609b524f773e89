package services

import "math"

const (
	BaseXP         = 100
	ExpCurve       = 1.3
	MaxLevel       = 100
	BaseCoinReward = 50
	CoinCurve      = 1.25
)

// Unreachable is the threshold reported at MaxLevel; no amount of XP reaches it.
const Unreachable int64 = math.MaxInt64

// XPThreshold returns the XP needed to go from level to level+1.
// e.g. XPThreshold(1) = 100, XPThreshold(2) = 246
func XPThreshold(level int) int64 {
	if level >= MaxLevel {
		return Unreachable
	}
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(BaseXP * math.Pow(float64(level), ExpCurve)))
}

// CoinRewardForLevel is the bonus paid once when levelReached is entered.
func CoinRewardForLevel(levelReached int) int64 {
	if levelReached < 1 {
		return 0
	}
	return int64(math.Floor(BaseCoinReward * math.Pow(float64(levelReached), CoinCurve)))
}
