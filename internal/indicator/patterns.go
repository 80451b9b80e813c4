package indicator

import "trading-agent/internal/model"

// Patterns detects candlestick patterns on the most recent bars. Single-bar
// patterns examine the last bar, two-bar patterns the last two, and star
// patterns the last three. Tags are returned in detection order.
func Patterns(bars []model.Bar) []model.PatternTag {
	n := len(bars)
	if n == 0 {
		return nil
	}

	var tags []model.PatternTag
	last := bars[n-1]

	body := abs(last.Close - last.Open)
	span := last.High - last.Low
	upperWick := last.High - max2(last.Open, last.Close)
	lowerWick := min2(last.Open, last.Close) - last.Low

	if span > 0 {
		switch {
		case body <= span*0.1:
			tags = append(tags, model.PatternDoji)
		case lowerWick >= body*2 && upperWick <= body:
			tags = append(tags, model.PatternHammer)
		case upperWick >= body*2 && lowerWick <= body:
			tags = append(tags, model.PatternShootingStar)
		}
	}

	if n >= 2 {
		prev := bars[n-2]
		prevBody := abs(prev.Close - prev.Open)
		if prevBody > 0 && body > prevBody {
			if prev.Close < prev.Open && last.Close > last.Open &&
				last.Close > prev.Open && last.Open < prev.Close {
				tags = append(tags, model.PatternBullishEngulfing)
			}
			if prev.Close > prev.Open && last.Close < last.Open &&
				last.Open > prev.Close && last.Close < prev.Open {
				tags = append(tags, model.PatternBearishEngulfing)
			}
		}
	}

	if n >= 3 {
		a, b := bars[n-3], bars[n-2]
		aBody := abs(a.Close - a.Open)
		bBody := abs(b.Close - b.Open)
		// Star patterns: big candle, small middle candle, big reversal
		// candle closing past the first candle's midpoint.
		if aBody > 0 && bBody < aBody*0.5 {
			mid := (a.Open + a.Close) / 2
			if a.Close < a.Open && last.Close > last.Open && last.Close > mid {
				tags = append(tags, model.PatternMorningStar)
			}
			if a.Close > a.Open && last.Close < last.Open && last.Close < mid {
				tags = append(tags, model.PatternEveningStar)
			}
		}
	}

	return tags
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
