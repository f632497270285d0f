package core

// Formatting helpers for debug text. fmt is too heavy for AVR builds.

// utoa formats n in decimal
func utoa(n uint32) string {
	var buf [10]byte
	return string(appendDigits(buf[:0], n))
}

// itoa formats n in decimal with a leading minus when negative
func itoa(n int) string {
	var buf [21]byte
	out := buf[:0]
	u := uint64(n)
	if n < 0 {
		out = append(out, '-')
		u = uint64(-n)
	}
	return string(appendDigits64(out, u))
}

func appendDigits(dst []byte, n uint32) []byte {
	return appendDigits64(dst, uint64(n))
}

func appendDigits64(dst []byte, n uint64) []byte {
	if n == 0 {
		return append(dst, '0')
	}
	start := len(dst)
	for n > 0 {
		dst = append(dst, byte('0'+n%10))
		n /= 10
	}
	// digits were produced least significant first
	for i, j := start, len(dst)-1; i < j; i, j = i+1, j-1 {
		dst[i], dst[j] = dst[j], dst[i]
	}
	return dst
}
