package app

// CheckAnswer reports whether response matches expected byte for byte.
// Case and surrounding whitespace are significant.
func CheckAnswer(response, expected string) bool {
	return response == expected
}
