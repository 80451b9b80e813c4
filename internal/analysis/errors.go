package analysis

import "fmt"

// InsufficientDataError is returned when a bar window is too short for the
// indicator set. Callers skip the tick; it is not a fault.
type InsufficientDataError struct {
	Symbol string
	Have   int
	Need   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: have %d bars, need %d", e.Symbol, e.Have, e.Need)
}
