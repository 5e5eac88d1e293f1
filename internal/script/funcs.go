package script

import (
	"maps"
	"slices"
)

// Builtin functions a script can refer to by name.
var (
	predicates = map[string]func(int) bool{
		"even":     func(x int) bool { return x%2 == 0 },
		"odd":      func(x int) bool { return x%2 != 0 },
		"positive": func(x int) bool { return x > 0 },
		"negative": func(x int) bool { return x < 0 },
		"nonzero":  func(x int) bool { return x != 0 },
	}

	mappers = map[string]func(int) int{
		"square": func(x int) int { return x * x },
		"double": func(x int) int { return 2 * x },
		"negate": func(x int) int { return -x },
		"abs":    abs,
		"parity": func(x int) int { return abs(x % 2) },
		"mod3":   func(x int) int { return ((x % 3) + 3) % 3 },
		"mod10":  func(x int) int { return ((x % 10) + 10) % 10 },
	}

	expanders = map[string]func(int) []int{
		// digits expands to the decimal digits of |x|.
		"digits": func(x int) []int {
			x = abs(x)
			if x == 0 {
				return []int{0}
			}
			var ds []int
			for ; x > 0; x /= 10 {
				ds = append(ds, x%10)
			}
			slices.Reverse(ds)
			return ds
		},
		"pair": func(x int) []int { return []int{x, x} },
		"none": func(int) []int { return nil },
	}
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func names[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
