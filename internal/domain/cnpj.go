package domain

// NormalizeCNPJ strips the usual punctuation (". / -" and spaces) and checks
// both verification digits. It returns the 14 bare digits on success.
func NormalizeCNPJ(raw string) (string, bool) {
	digits := make([]byte, 0, 14)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '.' || c == '/' || c == '-' || c == ' ':
		default:
			return "", false
		}
	}
	if len(digits) != 14 {
		return "", false
	}

	allSame := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return "", false
	}

	if checkDigit(digits[:12]) != digits[12] || checkDigit(digits[:13]) != digits[13] {
		return "", false
	}
	return string(digits), true
}

// checkDigit computes the modulo-11 verification digit over ds using the
// cyclic 2..9 weights applied right to left.
func checkDigit(ds []byte) byte {
	sum, weight := 0, 2
	for i := len(ds) - 1; i >= 0; i-- {
		sum += int(ds[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}
