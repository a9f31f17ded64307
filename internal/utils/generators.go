package utils

import (
	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape of an identifier produced by GenerateID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
