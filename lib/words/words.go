// Package words spells integers out in words.
package words

import "strings"

// FromNumber spells n in language l, e.g. 103 -> "One Hundred Three" or
// "صد و سه". Unsupported languages fall back to English.
func FromNumber(n int64, l Language) string {
	v, ok := table[l]
	if !ok {
		v = table[English]
	}

	if n == 0 {
		return v.zero
	}

	if n < 0 {
		// two's complement negation is exact for math.MinInt64 in uint64
		return v.negative + " " + v.spell(uint64(-(n+1))+1)
	}

	return v.spell(uint64(n))
}

func (v vocabulary) spell(n uint64) string {
	var groups []uint64
	for n > 0 {
		groups = append(groups, n%1000)
		n /= 1000
	}

	var parts []string
	for i := len(groups) - 1; i >= 0; i-- {
		switch {
		case groups[i] == 0:
			continue
		case i == 0:
			parts = append(parts, v.spellGroup(groups[i]))
		default:
			parts = append(parts, v.spellMagnitude(groups[i], i))
		}
	}

	return strings.Join(parts, v.and)
}

// spellMagnitude spells n times 1000^i for 1 <= n <= 999.
func (v vocabulary) spellMagnitude(n uint64, i int) string {
	word := v.groups[Thousands][i]
	if n > 1 && v.plural != nil {
		word = v.plural[i]
	}

	if n == 1 {
		if i <= v.bare {
			return word
		}
		return v.oneWord() + " " + word
	}

	return v.spellGroup(n) + " " + word
}

// spellGroup spells 1 <= n <= 999.
func (v vocabulary) spellGroup(n uint64) string {
	var parts []string

	if h := n / 100; h > 0 {
		parts = append(parts, v.groups[Hundreds][h])
	}

	switch r := n % 100; {
	case r >= 10 && r < 20:
		parts = append(parts, v.groups[Teens][r-10])
	case r >= 20 && r%10 != 0:
		parts = append(parts, v.spellTens(r/10, r%10))
	case r >= 20:
		parts = append(parts, v.groups[Tens][r/10])
	case r > 0:
		parts = append(parts, v.groups[Ones][r])
	}

	return strings.Join(parts, v.and)
}

// spellTens spells t*10+o for t >= 2 and o >= 1.
func (v vocabulary) spellTens(t, o uint64) string {
	join := v.tensAnd
	if o == 1 && v.tensOne != "" {
		join = v.tensOne
	}

	if v.onesFirst {
		ones := v.groups[Ones][o]
		if o == 1 {
			ones = v.oneWord()
		}
		return ones + join + v.groups[Tens][t]
	}

	return v.groups[Tens][t] + join + v.groups[Ones][o]
}

func (v vocabulary) oneWord() string {
	if v.one != "" {
		return v.one
	}
	return v.groups[Ones][1]
}
