package quiz

import "errors"

var (
	ErrTestNotFound  = errors.New("test not found")
	ErrAttemptsSpent = errors.New("attempt limit reached")
)
