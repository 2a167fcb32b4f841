package oracle

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseStables converts "token=decimals" entries. Blank entries are skipped.
func ParseStables(inputs []string) (map[string]int32, error) {
	out := make(map[string]int32, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		token, raw, ok := strings.Cut(input, "=")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return nil, fmt.Errorf("invalid stable token %q: want token=decimals", input)
		}
		decimals, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
		if err != nil || decimals < 0 || decimals > 36 {
			return nil, fmt.Errorf("invalid decimals for stable token %s: %q", token, raw)
		}
		out[token] = int32(decimals)
	}
	return out, nil
}
