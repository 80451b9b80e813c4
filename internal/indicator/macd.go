package indicator

// MACD computes the MACD line (fast EMA minus slow EMA), its signal line
// (EMA of the MACD line) and the histogram (line minus signal). The three
// returned series are aligned with the input.
func MACD(values []float64, fast, slow, signal int) (line, signalLine, histogram []float64) {
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)

	line = make([]float64, len(values))
	for i := range values {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine = EMA(line, signal)

	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = line[i] - signalLine[i]
	}
	return line, signalLine, histogram
}
