package enums

import (
	"fmt"
	"slices"
)

// parseEnum returns the member of valid equal to value.
func parseEnum[T ~string](valid []T, value string, kind string) (T, error) {
	if i := slices.Index(valid, T(value)); i >= 0 {
		return valid[i], nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
