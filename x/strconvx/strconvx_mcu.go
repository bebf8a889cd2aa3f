//go:build rp2040 || rp2350

package strconvx

import "errors"

// Minimal, allocation-aware helpers with identical signatures.
// FormatFloat/ParseFloat handle plain decimal notation only (no
// exponents, no hex floats); enough for degree values on MCU.

var errSyntax = errors.New("strconvx: invalid syntax")

func Itoa(i int) string { return FormatInt(int64(i), 10) }

func Atoi(s string) (int, error) {
	if s == "" {
		return 0, errSyntax
	}
	neg := false
	i := 0
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i = 1
		if len(s) == 1 {
			return 0, errSyntax
		}
	}
	n := 0
	for ; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errSyntax
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func FormatInt(i int64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	neg := i < 0
	var u uint64
	if neg {
		u = uint64(-i)
	} else {
		u = uint64(i)
	}
	s := formatUint(u, base)
	if neg {
		return "-" + s
	}
	return s
}

func formatUint(u uint64, base int) string {
	if u == 0 {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}

// FormatFloat supports fmt 'f' only; other verbs fall back to 'f'.
func FormatFloat(f float64, _ byte, prec, _ int) string {
	if prec < 0 {
		prec = 2
	}
	neg := f < 0
	if neg {
		f = -f
	}
	scale := 1.0
	for i := 0; i < prec; i++ {
		scale *= 10
	}
	scaled := uint64(f*scale + 0.5)
	ip := scaled
	var fp uint64
	if prec > 0 {
		div := uint64(scale)
		ip = scaled / div
		fp = scaled % div
	}
	s := formatUint(ip, 10)
	if prec > 0 {
		frac := formatUint(fp, 10)
		for len(frac) < prec {
			frac = "0" + frac
		}
		s += "." + frac
	}
	if neg {
		return "-" + s
	}
	return s
}

func ParseFloat(s string, _ int) (float64, error) {
	if s == "" {
		return 0, errSyntax
	}
	neg := false
	i := 0
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i = 1
	}
	var ip uint64
	seenDigit := false
	for ; i < len(s) && s[i] != '.'; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errSyntax
		}
		ip = ip*10 + uint64(c-'0')
		seenDigit = true
	}
	f := float64(ip)
	if i < len(s) { // fractional part after '.'
		i++
		div := 1.0
		for ; i < len(s); i++ {
			c := s[i]
			if c < '0' || c > '9' {
				return 0, errSyntax
			}
			div *= 10
			f += float64(c-'0') / div
			seenDigit = true
		}
	}
	if !seenDigit {
		return 0, errSyntax
	}
	if neg {
		f = -f
	}
	return f, nil
}
