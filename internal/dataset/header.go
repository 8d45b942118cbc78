package dataset

import "strings"

// excelColumnName converts a 0-based index to an Excel-style column name:
// 0 -> A, 25 -> Z, 26 -> AA.
func excelColumnName(index int) string {
	result := ""
	index++
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}

// NormalizeHeader replaces empty or whitespace-only column names with
// Unnamed_A, Unnamed_B, ... so every column stays addressable by name.
func NormalizeHeader(header []string) []string {
	normalized := make([]string, len(header))
	emptyCount := 0
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			normalized[i] = "Unnamed_" + excelColumnName(emptyCount)
			emptyCount++
		} else {
			normalized[i] = strings.TrimSpace(h)
		}
	}
	return normalized
}
