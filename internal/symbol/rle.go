package symbol

// clToken is one emitted code-length meta-alphabet symbol: either a
// literal bitwidth (0-15, no extra bits) or one of the RLE repeat
// codes (16/17/18) with its extra-bits field.
type clToken struct {
	sym        uint8
	extraWidth uint8
	extraVal   uint16
}

// rleEncode collapses a sequence of code-length bitwidths into the
// 16/17/18 RLE meta-alphabet: runs of identical nonzero widths (after
// their first literal occurrence) collapse via symbol 16, runs of
// zero widths collapse via 17 (3-10) or 18 (11-138), each token
// greedily covering as much of the run as its count field allows.
func rleEncode(widths []uint8) []clToken {
	var tokens []clToken
	n := len(widths)
	i := 0
	for i < n {
		w := widths[i]
		j := i + 1
		for j < n && widths[j] == w {
			j++
		}
		runLen := j - i

		if w == 0 {
			k := 0
			for k < runLen {
				remaining := runLen - k
				switch {
				case remaining >= 11:
					take := remaining
					if take > 138 {
						take = 138
					}
					tokens = append(tokens, clToken{sym: 18, extraWidth: 7, extraVal: uint16(take - 11)})
					k += take
				case remaining >= 3:
					take := remaining
					if take > 10 {
						take = 10
					}
					tokens = append(tokens, clToken{sym: 17, extraWidth: 3, extraVal: uint16(take - 3)})
					k += take
				default:
					tokens = append(tokens, clToken{sym: 0})
					k++
				}
			}
		} else {
			tokens = append(tokens, clToken{sym: w})
			k := 1
			for k < runLen {
				remaining := runLen - k
				if remaining >= 3 {
					take := remaining
					if take > 6 {
						take = 6
					}
					tokens = append(tokens, clToken{sym: 16, extraWidth: 2, extraVal: uint16(take - 3)})
					k += take
				} else {
					tokens = append(tokens, clToken{sym: w})
					k++
				}
			}
		}
		i = j
	}
	return tokens
}
