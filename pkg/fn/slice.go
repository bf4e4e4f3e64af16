package fn

// Map applies f to each element.
func Map[T, U any](items []T, f func(T) U) []U {
	out := make([]U, len(items))
	for i, v := range items {
		out[i] = f(v)
	}
	return out
}

// FilterMap applies f and keeps results where ok is true.
func FilterMap[T, U any](items []T, f func(T) (U, bool)) []U {
	var out []U
	for _, v := range items {
		if u, ok := f(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// GroupBy groups items by a key function, preserving per-group order.
func GroupBy[T any, K comparable](items []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range items {
		k := key(v)
		out[k] = append(out[k], v)
	}
	return out
}

// Chunk splits items into consecutive chunks of size n. Returns nil if n <= 0.
func Chunk[T any](items []T, n int) [][]T {
	if n <= 0 {
		return nil
	}
	var out [][]T
	for i := 0; i < len(items); i += n {
		end := i + n
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// FlatMap applies f to each element and concatenates the results.
func FlatMap[T, U any](items []T, f func(T) []U) []U {
	var out []U
	for _, v := range items {
		out = append(out, f(v)...)
	}
	return out
}
