package domain

import (
	"math"
	"strconv"
	"strings"
)

// Money is handled in integer cents end to end. Floats only appear at the
// presentation edge (ToMajor) and in odds.

// ParseAmount converts pt-BR formatted text ("R$ 1.234,56") into cents.
//
// Every character other than digits, '.', ',' and '-' is dropped, '.' is
// treated as a thousands separator and the first ',' as the decimal
// separator. The longest numeric prefix is parsed and rounded half away from
// zero on the third fractional digit. Text without a number yields 0.
func ParseAmount(text string) int64 {
	cents, _ := ParseAmountOK(text)
	return cents
}

// ParseAmountOK is ParseAmount that also reports whether text held a number.
func ParseAmountOK(text string) (int64, bool) {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := strings.ReplaceAll(b.String(), ".", "")
	s = strings.Replace(s, ",", ".", 1)

	neg, intPart, fracPart, ok := numericPrefix(s)
	if !ok {
		return 0, false
	}
	return decimalToCents(neg, intPart, fracPart), true
}

// ParseDecimal is ParseAmount for text already using '.' or ',' as the
// decimal separator with no grouping (e.g. odds "1,85" or "1.85").
// ok is false when no number is present.
func ParseDecimal(text string) (float64, bool) {
	s := strings.Replace(strings.TrimSpace(text), ",", ".", 1)
	neg, intPart, fracPart, ok := numericPrefix(s)
	if !ok {
		return 0, false
	}
	num := intPart
	if num == "" {
		num = "0"
	}
	if fracPart != "" {
		num += "." + fracPart
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// numericPrefix scans an optional sign, integer digits and an optional
// '.'-separated fraction from the start of s. At least one digit is required.
func numericPrefix(s string) (neg bool, intPart, fracPart string, ok bool) {
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	intPart = s[start:i]
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		fracPart = s[i+1 : j]
	}
	ok = intPart != "" || fracPart != ""
	return
}

func decimalToCents(neg bool, intPart, fracPart string) int64 {
	var whole int64
	if intPart != "" {
		iv, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0
		}
		// whole*100 + 99 + rounding must stay below MaxInt64.
		const maxSafe = (math.MaxInt64 - 100) / 100
		if iv > maxSafe {
			return 0
		}
		whole = iv
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		frac += int64(fracPart[1] - '0')
	}
	cents := whole*100 + frac
	if len(fracPart) > 2 && fracPart[2] >= '5' {
		cents++
	}
	if neg {
		return -cents
	}
	return cents
}

// FormatAmount renders cents as "1.234,56": two fraction digits, comma
// decimal separator and dot grouping. Negative values get a leading '-'.
func FormatAmount(cents int64) string {
	neg := cents < 0
	abs := uint64(cents)
	if neg {
		abs = uint64(-(cents + 1)) + 1
	}

	whole := strconv.FormatUint(abs/100, 10)
	frac := abs % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	b.WriteByte(',')
	b.WriteByte(byte('0' + frac/10))
	b.WriteByte(byte('0' + frac%10))
	return b.String()
}

// FormatBRL renders cents as Brazilian reais, e.g. "R$ 1.234,56" or
// "-R$ 10,00".
func FormatBRL(cents int64) string {
	if cents < 0 {
		return "-R$ " + FormatAmount(cents)[1:]
	}
	return "R$ " + FormatAmount(cents)
}

// ToMajor converts cents into reais for charts.
func ToMajor(cents int64) float64 {
	return float64(cents) / 100
}
