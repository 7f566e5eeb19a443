package resolver

// jaroWinkler scores similarity between two normalized labels in [0,1].
// It operates on runes so Hangul labels compare by syllable, not by UTF-8
// byte. Matching characters are aligned within a window of max(len)/2-1,
// adjusted for transpositions, with a prefix bonus of 0.1 per shared leading
// rune (capped at 4) scaled by the remaining distance.
func jaroWinkler(s, t string) float64 {
	sr := []rune(s)
	tr := []rune(t)
	if string(sr) == string(tr) {
		return 1.0
	}
	sLen, tLen := len(sr), len(tr)
	if sLen == 0 || tLen == 0 {
		return 0.0
	}

	window := max(sLen, tLen)/2 - 1
	if window < 0 {
		window = 0
	}
	sMatched := make([]bool, sLen)
	tMatched := make([]bool, tLen)

	matches := 0
	for i := 0; i < sLen; i++ {
		lo := max(0, i-window)
		hi := min(i+window+1, tLen)
		for j := lo; j < hi; j++ {
			if tMatched[j] || sr[i] != tr[j] {
				continue
			}
			sMatched[i] = true
			tMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < sLen; i++ {
		if !sMatched[i] {
			continue
		}
		for !tMatched[k] {
			k++
		}
		if sr[i] != tr[k] {
			transpositions++
		}
		k++
	}
	half := float64(transpositions) / 2.0

	m := float64(matches)
	jaro := (m/float64(sLen) + m/float64(tLen) + (m-half)/m) / 3.0

	prefix := 0
	for i := 0; i < min(4, min(sLen, tLen)); i++ {
		if sr[i] != tr[i] {
			break
		}
		prefix++
	}
	return jaro + float64(prefix)*0.1*(1.0-jaro)
}
