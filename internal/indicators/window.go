package indicators

// Window is a bounded, ordered price sequence. The oldest entries are dropped
// from the front whenever the length would exceed the requested size.
type Window struct {
	prices []float64
}

// NewWindow seeds a window with prices (copied). It does not trim.
func NewWindow(prices []float64) *Window {
	w := &Window{prices: make([]float64, len(prices))}
	copy(w.prices, prices)
	return w
}

// Append adds price and trims to size (size < 1 is treated as 1).
func (w *Window) Append(price float64, size int) {
	w.prices = append(w.prices, price)
	w.Trim(size)
}

// AppendIfChanged appends only when the window is empty or its last entry
// differs from price. Reports whether the price was appended.
func (w *Window) AppendIfChanged(price float64, size int) bool {
	if last, ok := w.Last(); ok && last == price {
		w.Trim(size)
		return false
	}
	w.Append(price, size)
	return true
}

// Trim drops the oldest entries until Len() <= size.
func (w *Window) Trim(size int) {
	if size < 1 {
		size = 1
	}
	if excess := len(w.prices) - size; excess > 0 {
		w.prices = append(w.prices[:0], w.prices[excess:]...)
	}
}

// Last returns the newest entry.
func (w *Window) Last() (float64, bool) {
	if len(w.prices) == 0 {
		return 0, false
	}
	return w.prices[len(w.prices)-1], true
}

func (w *Window) Len() int { return len(w.prices) }

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.prices))
	copy(out, w.prices)
	return out
}

// Tail returns at most the n newest entries without copying.
func (w *Window) Tail(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n >= len(w.prices) {
		return w.prices
	}
	return w.prices[len(w.prices)-n:]
}

// With returns the window contents followed by price, without mutating w.
func (w *Window) With(price float64) []float64 {
	out := make([]float64, len(w.prices), len(w.prices)+1)
	copy(out, w.prices)
	return append(out, price)
}
