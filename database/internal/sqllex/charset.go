package sqllex

// IsCharsetName reports whether name looks like a character set name such as
// utf8mb4, UTF-8 or LATIN1: letters, digits, '_' and '-' only.
func IsCharsetName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
