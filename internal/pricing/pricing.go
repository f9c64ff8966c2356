// Package pricing converts generation parameters into token costs. The table
// mirrors the per-image token consumption of the gpt-image-1 model, so one
// ledger token corresponds to one model token.
package pricing

// Supported quality levels.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// Supported image sizes.
const (
	SizeSquare    = "1024x1024"
	SizePortrait  = "1024x1536"
	SizeLandscape = "1536x1024"
)

var tokenTable = map[string]map[string]int{
	QualityLow: {
		SizeSquare:    272,
		SizePortrait:  408,
		SizeLandscape: 400,
	},
	QualityMedium: {
		SizeSquare:    1056,
		SizePortrait:  1584,
		SizeLandscape: 1568,
	},
	QualityHigh: {
		SizeSquare:    4160,
		SizePortrait:  6240,
		SizeLandscape: 6208,
	},
}

// Estimate returns the token cost of a single image for the given quality and
// size. Unknown values fall back to the medium/square baseline so a stale
// setting can never make a job free.
func Estimate(quality, size string) int {
	sizes, ok := tokenTable[quality]
	if !ok {
		sizes = tokenTable[QualityMedium]
	}
	cost, ok := sizes[size]
	if !ok {
		cost = sizes[SizeSquare]
	}
	return cost
}

// EstimateWithMultiplier applies a template cost multiplier on top of the base
// estimate. Multipliers below 1 are treated as 1.
func EstimateWithMultiplier(quality, size string, multiplier int) int {
	if multiplier < 1 {
		multiplier = 1
	}
	return Estimate(quality, size) * multiplier
}

// SignupGrant is the starting balance for new accounts: enough tokens for
// initialImages medium-quality square images.
func SignupGrant(initialImages int) int {
	if initialImages < 0 {
		initialImages = 0
	}
	return initialImages * Estimate(QualityMedium, SizeSquare)
}
