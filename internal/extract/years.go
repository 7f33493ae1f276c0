package extract

// YearSpan returns the smallest and largest year, or ok=false when years is
// empty. Input order does not matter.
func YearSpan(years []int) (first, last int, ok bool) {
	if len(years) == 0 {
		return 0, 0, false
	}
	first, last = years[0], years[0]
	for _, y := range years[1:] {
		if y < first {
			first = y
		}
		if y > last {
			last = y
		}
	}
	return first, last, true
}

// FullRange returns every year from the first to the last observed year.
func FullRange(years []int) []int {
	first, last, ok := YearSpan(years)
	if !ok {
		return []int{}
	}
	out := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		out = append(out, y)
	}
	return out
}

// MissingYears returns the years inside the observed span that do not appear
// in years, ascending.
func MissingYears(years []int) []int {
	present := make(map[int]struct{}, len(years))
	for _, y := range years {
		present[y] = struct{}{}
	}
	missing := []int{}
	for _, y := range FullRange(years) {
		if _, ok := present[y]; !ok {
			missing = append(missing, y)
		}
	}
	return missing
}
