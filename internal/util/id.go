package util

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SlugLength is the length of the public review slug.
const SlugLength = 12

func NewID() string {
	return uuid.NewString()
}

// NewSlug returns a random slug for share URLs.
func NewSlug() string {
	bytes := make([]byte, SlugLength)
	_, _ = rand.Read(bytes)
	for i, b := range bytes {
		bytes[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(bytes)
}
