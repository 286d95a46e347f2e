package handlers

import (
	"errors"
	"fmt"
)

var (
	errUnauthenticated = errors.New("authentication required")
	errForeignStudent  = errors.New("students may only access their own record")
)

func errBadID(name string) error {
	return fmt.Errorf("%s is missing or malformed", name)
}
