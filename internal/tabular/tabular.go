// Package tabular answers structured queries over pipe-delimited tabular
// documents directly, bypassing retrieval and the LLM for point lookups,
// counts, averages, extrema, and filters. It is tried before falling back
// to hybrid retrieval.
package tabular

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const separator = " | "

var (
	pseudonymRe       = regexp.MustCompile(`\[([A-Z][A-Z0-9_]*_\d+)\]`)
	countPatterns     = regexp.MustCompile(`(?i)\b(how many|count|total number|number of)\b`)
	avgPatterns       = regexp.MustCompile(`(?i)\b(average|mean|avg)\b`)
	sumPatterns       = regexp.MustCompile(`(?i)\bsum\b|\btotal\b(?:\s+number)?`)
	extremaMaxPattern = regexp.MustCompile(`(?i)\b(oldest|highest|maximum|max|most|largest|biggest|top)\b`)
	extremaMinPattern = regexp.MustCompile(`(?i)\b(youngest|lowest|minimum|min|least|smallest|bottom)\b`)
	comparePatterns   = regexp.MustCompile(`(?i)\b(compare|difference between|versus|vs)\b`)
	filterPatterns    = regexp.MustCompile(`(?i)\b(list all|show all|list everyone|show everyone|all .+ (with|in|from|over|under|above|below))\b`)
	numericHintsRe    = regexp.MustCompile(`(?i)\b(age|salary|income|amount|balance|score|rating|count|total|price|cost|weight|height|years?|months?|days?|number|quantity|rate|percentage|zip)\b`)
	overThresholdRe   = regexp.MustCompile(`(?i)(over|above|greater than|more than|>)\s*(\d+(?:\.\d+)?)`)
	underThresholdRe  = regexp.MustCompile(`(?i)(under|below|less than|fewer than|<)\s*(\d+(?:\.\d+)?)`)
)

// Table is a parsed pipe-delimited document.
type Table struct {
	Header []string
	Rows   [][]string
}

// Result is the outcome of a structured query.
type Result struct {
	Success   bool
	Context   string
	QueryType string
}

// IsTabular reports whether text looks like a pipe-delimited table.
func IsTabular(text string) bool {
	lines := strings.SplitN(text, "\n", 6)
	count := 0
	for _, l := range lines {
		if strings.Count(l, separator) >= 2 {
			count++
		}
	}
	return count >= 2
}

// Parse splits pipe-delimited text into a header row and data rows,
// padding or trimming each row to the header's column count.
func Parse(text string) *Table {
	var nonEmpty []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) < 2 {
		return nil
	}

	header := splitTrim(nonEmpty[0])
	var rows [][]string
	for _, line := range nonEmpty[1:] {
		cells := splitTrim(line)
		if len(cells) < len(header) {
			for len(cells) < len(header) {
				cells = append(cells, "")
			}
		} else if len(cells) > len(header) {
			cells = cells[:len(header)]
		}
		rows = append(rows, cells)
	}
	return &Table{Header: header, Rows: rows}
}

func splitTrim(line string) []string {
	parts := strings.Split(line, separator)
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// TryQuery attempts to answer query structurally against the tabular
// documents in blindedDocuments. It returns ok=false when no tabular
// data exists or the query can't be handled, so the caller should fall
// back to hybrid retrieval.
func TryQuery(query string, blindedDocuments []string) (Result, bool) {
	var tables []*Table
	for _, doc := range blindedDocuments {
		if IsTabular(doc) {
			if t := Parse(doc); t != nil && len(t.Rows) > 0 {
				tables = append(tables, t)
			}
		}
	}
	if len(tables) == 0 {
		return Result{}, false
	}

	pseudoSet := uniquePseudonyms(query)

	if comparePatterns.MatchString(query) && len(pseudoSet) >= 2 {
		return handleComparison(tables, pseudoSet), true
	}
	if len(pseudoSet) == 1 {
		return handlePointLookup(tables, pseudoSet[0]), true
	}
	if len(pseudoSet) > 1 {
		return handleMultiLookup(tables, pseudoSet), true
	}
	if countPatterns.MatchString(query) {
		return handleCount(query, tables), true
	}
	if avgPatterns.MatchString(query) {
		if r, ok := handleAverage(query, tables); ok {
			return r, true
		}
		return Result{}, false
	}
	if sumPatterns.MatchString(query) {
		if r, ok := handleSum(query, tables); ok {
			return r, true
		}
		return Result{}, false
	}
	if extremaMaxPattern.MatchString(query) {
		if r, ok := handleExtrema(query, tables, "max"); ok {
			return r, true
		}
		return Result{}, false
	}
	if extremaMinPattern.MatchString(query) {
		if r, ok := handleExtrema(query, tables, "min"); ok {
			return r, true
		}
		return Result{}, false
	}
	if filterPatterns.MatchString(query) {
		if r, ok := handleFilter(query, tables); ok {
			return r, true
		}
		return Result{}, false
	}
	if pseudonymRe.MatchString(query) {
		return handleReverseLookup(query, tables), true
	}
	return Result{}, false
}

func uniquePseudonyms(query string) []string {
	matches := pseudonymRe.FindAllString(query, -1)
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

type rowMatch struct {
	table *Table
	row   []string
}

func findRowsWithValue(tables []*Table, value string) []rowMatch {
	var out []rowMatch
	for _, t := range tables {
		for _, row := range t.Rows {
			for _, cell := range row {
				if strings.Contains(cell, value) {
					out = append(out, rowMatch{t, row})
					break
				}
			}
		}
	}
	return out
}

func formatRow(header, row []string) string {
	var lines []string
	for i, col := range header {
		if i < len(row) && strings.TrimSpace(row[i]) != "" {
			lines = append(lines, fmt.Sprintf("  - %s: %s", col, row[i]))
		}
	}
	return strings.Join(lines, "\n")
}

func findColumn(header []string, query string) (int, bool) {
	lower := strings.ToLower(query)
	for i, col := range header {
		if strings.Contains(lower, strings.ToLower(col)) {
			return i, true
		}
	}
	return 0, false
}

func findNumericColumn(header []string, query string) (int, bool) {
	if idx, ok := findColumn(header, query); ok {
		return idx, true
	}
	for i, col := range header {
		if numericHintsRe.MatchString(col) {
			return i, true
		}
	}
	return 0, false
}

type numericValue struct {
	val float64
	row []string
}

func numericValues(t *Table, colIdx int) []numericValue {
	var out []numericValue
	for _, row := range t.Rows {
		if colIdx >= len(row) {
			continue
		}
		cleaned := strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(row[colIdx]))
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		out = append(out, numericValue{v, row})
	}
	return out
}

func handlePointLookup(tables []*Table, pseudonym string) Result {
	matches := findRowsWithValue(tables, pseudonym)
	if len(matches) == 0 {
		return Result{Success: false, Context: fmt.Sprintf("No data found for %s in the documents.", pseudonym), QueryType: "point_lookup"}
	}
	var parts []string
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("Data for %s:\n%s", pseudonym, formatRow(m.table.Header, m.row)))
	}
	return Result{Success: true, Context: strings.Join(parts, "\n\n"), QueryType: "point_lookup"}
}

func handleMultiLookup(tables []*Table, pseudonyms []string) Result {
	sorted := append([]string(nil), pseudonyms...)
	sort.Strings(sorted)
	var parts []string
	for _, p := range sorted {
		matches := findRowsWithValue(tables, p)
		if len(matches) == 0 {
			parts = append(parts, fmt.Sprintf("No data found for %s.", p))
			continue
		}
		for _, m := range matches {
			parts = append(parts, fmt.Sprintf("Data for %s:\n%s", p, formatRow(m.table.Header, m.row)))
		}
	}
	return Result{Success: true, Context: strings.Join(parts, "\n\n"), QueryType: "multi_lookup"}
}

func handleComparison(tables []*Table, pseudonyms []string) Result {
	sorted := append([]string(nil), pseudonyms...)
	sort.Strings(sorted)
	parts := []string{"Comparison:"}
	for _, p := range sorted {
		matches := findRowsWithValue(tables, p)
		if len(matches) == 0 {
			parts = append(parts, fmt.Sprintf("\n%s: No data found.", p))
			continue
		}
		parts = append(parts, fmt.Sprintf("\n%s:\n%s", p, formatRow(matches[0].table.Header, matches[0].row)))
	}
	return Result{Success: true, Context: strings.Join(parts, "\n"), QueryType: "comparison"}
}

func handleReverseLookup(query string, tables []*Table) Result {
	matches := pseudonymRe.FindAllString(query, -1)
	var parts []string
	for _, full := range matches {
		for _, m := range findRowsWithValue(tables, full) {
			parts = append(parts, fmt.Sprintf("Row containing %s:\n%s", full, formatRow(m.table.Header, m.row)))
		}
	}
	if len(parts) == 0 {
		return Result{Success: false, Context: "No matching rows found.", QueryType: "reverse_lookup"}
	}
	return Result{Success: true, Context: strings.Join(parts, "\n\n"), QueryType: "reverse_lookup"}
}

func parseThreshold(query string, re *regexp.Regexp) (float64, bool) {
	m := re.FindStringSubmatch(query)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[2], 64)
	return v, err == nil
}

func handleCount(query string, tables []*Table) Result {
	for _, t := range tables {
		colIdx, ok := findNumericColumn(t.Header, query)
		if !ok {
			return Result{Success: true, Context: fmt.Sprintf("Total rows in the dataset: %d", len(t.Rows)), QueryType: "count"}
		}
		colName := t.Header[colIdx]
		values := numericValues(t, colIdx)

		if threshold, ok := parseThreshold(query, overThresholdRe); ok {
			count := 0
			for _, v := range values {
				if v.val > threshold {
					count++
				}
			}
			return Result{Success: true, QueryType: "count", Context: fmt.Sprintf(
				"ANALYSIS METHOD: Scanned %d rows in the dataset. Parsed the '%s' column as numeric values across %d valid rows (non-numeric entries excluded). Applied filter: %s > %g.\n\nRESULT: %d out of %d rows have %s greater than %g.",
				len(t.Rows), colName, len(values), colName, threshold, count, len(values), colName, threshold)}
		}
		if threshold, ok := parseThreshold(query, underThresholdRe); ok {
			count := 0
			for _, v := range values {
				if v.val < threshold {
					count++
				}
			}
			return Result{Success: true, QueryType: "count", Context: fmt.Sprintf(
				"ANALYSIS METHOD: Scanned %d rows in the dataset. Parsed the '%s' column as numeric values across %d valid rows (non-numeric entries excluded). Applied filter: %s < %g.\n\nRESULT: %d out of %d rows have %s less than %g.",
				len(t.Rows), colName, len(values), colName, threshold, count, len(values), colName, threshold)}
		}

		return Result{Success: true, QueryType: "count", Context: fmt.Sprintf(
			"ANALYSIS METHOD: Scanned %d rows in the dataset. Counted rows with valid '%s' data.\n\nRESULT: %d rows have valid %s data (out of %d total rows).",
			len(t.Rows), colName, len(values), colName, len(t.Rows))}
	}
	return Result{Success: false, Context: "No tabular data to count.", QueryType: "count"}
}

func handleAverage(query string, tables []*Table) (Result, bool) {
	for _, t := range tables {
		colIdx, ok := findNumericColumn(t.Header, query)
		if !ok {
			continue
		}
		colName := t.Header[colIdx]
		values := numericValues(t, colIdx)
		if len(values) == 0 {
			continue
		}
		var sum, min, max float64
		min, max = values[0].val, values[0].val
		for _, v := range values {
			sum += v.val
			if v.val < min {
				min = v.val
			}
			if v.val > max {
				max = v.val
			}
		}
		avg := sum / float64(len(values))
		return Result{Success: true, QueryType: "average", Context: fmt.Sprintf(
			"ANALYSIS METHOD: Extracted numeric values from the '%s' column across %d valid rows (out of %d total). Computed the arithmetic mean: sum of all values / count.\n\nRESULT: Average %s = %.2f (min: %.2f, max: %.2f, computed from %d rows).",
			colName, len(values), len(t.Rows), colName, avg, min, max, len(values))}, true
	}
	return Result{Success: false, Context: "Could not find a numeric column to average.", QueryType: "average"}, false
}

func handleSum(query string, tables []*Table) (Result, bool) {
	for _, t := range tables {
		colIdx, ok := findNumericColumn(t.Header, query)
		if !ok {
			continue
		}
		colName := t.Header[colIdx]
		values := numericValues(t, colIdx)
		if len(values) == 0 {
			continue
		}
		var total float64
		for _, v := range values {
			total += v.val
		}
		return Result{Success: true, QueryType: "sum", Context: fmt.Sprintf(
			"ANALYSIS METHOD: Extracted numeric values from the '%s' column across %d valid rows (out of %d total). Summed all values.\n\nRESULT: Sum of %s = %.2f (from %d rows).",
			colName, len(values), len(t.Rows), colName, total, len(values))}, true
	}
	return Result{Success: false, Context: "Could not find a numeric column to sum.", QueryType: "sum"}, false
}

func handleExtrema(query string, tables []*Table, direction string) (Result, bool) {
	for _, t := range tables {
		colIdx, ok := findNumericColumn(t.Header, query)
		if !ok {
			continue
		}
		colName := t.Header[colIdx]
		values := numericValues(t, colIdx)
		if len(values) == 0 {
			continue
		}
		best := values[0]
		label := "highest"
		for _, v := range values {
			if direction == "max" && v.val > best.val {
				best = v
			}
			if direction == "min" && v.val < best.val {
				best = v
			}
		}
		if direction == "min" {
			label = "lowest"
		}
		return Result{Success: true, QueryType: "extrema", Context: fmt.Sprintf(
			"ANALYSIS METHOD: Extracted numeric values from the '%s' column across %d valid rows (out of %d total). Sorted by %s to find the %s value.\n\nRESULT: Row with %s %s (%g):\n%s",
			colName, len(values), len(t.Rows), colName, label, label, colName, best.val, formatRow(t.Header, best.row))}, true
	}
	return Result{Success: false, Context: "Could not find a numeric column.", QueryType: "extrema"}, false
}

func handleFilter(query string, tables []*Table) (Result, bool) {
	for _, t := range tables {
		colIdx, ok := findNumericColumn(t.Header, query)
		if !ok {
			continue
		}
		colName := t.Header[colIdx]
		values := numericValues(t, colIdx)

		var matches []numericValue
		var threshold float64
		var haveThreshold bool
		if th, ok := parseThreshold(query, overThresholdRe); ok {
			threshold, haveThreshold = th, true
			for _, v := range values {
				if v.val > threshold {
					matches = append(matches, v)
				}
			}
		} else if th, ok := parseThreshold(query, underThresholdRe); ok {
			threshold, haveThreshold = th, true
			for _, v := range values {
				if v.val < threshold {
					matches = append(matches, v)
				}
			}
		}
		if !haveThreshold {
			continue
		}

		if len(matches) == 0 {
			return Result{Success: true, Context: fmt.Sprintf("No rows found matching the filter on %s.", colName), QueryType: "filter"}, true
		}

		display := matches
		if len(display) > 20 {
			display = display[:20]
		}
		var parts []string
		parts = append(parts, fmt.Sprintf(
			"ANALYSIS METHOD: Scanned %d rows in the dataset. Parsed the '%s' column as numeric values across %d valid rows. Applied filter to find matching rows.\n\nRESULT: Found %d rows matching filter on %s:\n",
			len(t.Rows), colName, len(values), len(matches), colName))
		for _, v := range display {
			parts = append(parts, formatRow(t.Header, v.row))
			parts = append(parts, "")
		}
		if len(matches) > 20 {
			parts = append(parts, fmt.Sprintf("... and %d more rows.", len(matches)-20))
		}
		return Result{Success: true, Context: strings.Join(parts, "\n"), QueryType: "filter"}, true
	}
	return Result{}, false
}
