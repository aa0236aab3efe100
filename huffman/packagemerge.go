package huffman

import "golang.org/x/exp/slices"

// pmItem is one node in a package-merge working list: a combined
// weight and the set of original symbols it represents.
type pmItem struct {
	weight  uint64
	symbols []int
}

// PackageMerge computes length-limited, Kraft-optimal bitwidths for
// the given per-symbol frequencies, per the coin-collector's
// (package-merge) construction: repeatedly "package" the current
// working list into weight-summed pairs, "merge" that with the
// original sorted symbol list, and after maxWidth-1 rounds (the base
// list itself stands for the deepest level) count each
// symbol's occurrences in the first 2n-2 entries of the final list —
// that count is the symbol's bitwidth.
//
// Symbols with zero frequency are assigned bitwidth 0 (unused). A
// single used symbol is assigned bitwidth 1, never 0, per the
// single-symbol-alphabet rule: the RFC leaves this case ambiguous and
// encoders must not emit a 0-bitwidth code.
func PackageMerge(freqs []uint32, maxWidth uint8) []uint8 {
	widths := make([]uint8, len(freqs))

	type symFreq struct {
		sym  int
		freq uint32
	}
	var used []symFreq
	for s, f := range freqs {
		if f > 0 {
			used = append(used, symFreq{s, f})
		}
	}

	if len(used) == 0 {
		return widths
	}
	if len(used) == 1 {
		widths[used[0].sym] = 1
		return widths
	}

	slices.SortFunc(used, func(a, b symFreq) int {
		if a.freq != b.freq {
			if a.freq < b.freq {
				return -1
			}
			return 1
		}
		return a.sym - b.sym
	})

	base := make([]pmItem, len(used))
	for i, u := range used {
		base[i] = pmItem{weight: uint64(u.freq), symbols: []int{u.sym}}
	}

	cur := base
	for i := uint8(1); i < maxWidth; i++ {
		packaged := packagePairs(cur)
		cur = mergeSorted(packaged, base)
	}

	n := len(used)
	limit := 2*n - 2
	if limit > len(cur) {
		limit = len(cur)
	}
	for _, item := range cur[:limit] {
		for _, s := range item.symbols {
			widths[s]++
		}
	}
	return widths
}

// packagePairs merges adjacent items two at a time, summing their
// weights and concatenating their symbol sets. An odd item left over
// at the end (the heaviest, since the input is sorted ascending)
// cannot be paired this round and is dropped.
func packagePairs(items []pmItem) []pmItem {
	n := len(items) - len(items)%2
	out := make([]pmItem, 0, n/2)
	for i := 0; i < n; i += 2 {
		symbols := make([]int, 0, len(items[i].symbols)+len(items[i+1].symbols))
		symbols = append(symbols, items[i].symbols...)
		symbols = append(symbols, items[i+1].symbols...)
		out = append(out, pmItem{
			weight:  items[i].weight + items[i+1].weight,
			symbols: symbols,
		})
	}
	return out
}

// mergeSorted merges two ascending-by-weight lists into one ascending
// list, preferring a (already-packaged) before b on ties so that
// repeated package-merge rounds stay stable.
func mergeSorted(a, b []pmItem) []pmItem {
	out := make([]pmItem, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].weight <= b[j].weight {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
