package search

// lowerTable maps every byte to its ASCII lower-case form. Bytes outside
// A-Z map to themselves, so multi-byte UTF-8 sequences pass through intact.
var lowerTable = func() (t [256]byte) {
	for i := range t {
		b := byte(i)
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		t[i] = b
	}
	return t
}()

// Lower returns a lower-cased copy of s using byte-wise ASCII folding.
func Lower(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = lowerTable[s[i]]
	}
	return out
}

// foldInto writes the lower-cased form of src into dst. dst must be at least
// as long as src.
func foldInto(dst, src []byte) {
	for i, b := range src {
		dst[i] = lowerTable[b]
	}
}

// EqualFold reports whether a and b are equal under ASCII case folding.
// Unlike strings.EqualFold it never applies Unicode simple folding, so
// "K" (Kelvin sign) does not equal "k".
func EqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerTable[a[i]] != lowerTable[b[i]] {
			return false
		}
	}
	return true
}
