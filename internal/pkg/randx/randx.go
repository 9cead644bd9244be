/*
Package randx generates cryptographically secure random identifiers: Base62
room codes, guest IDs, fallback nicknames and UUID message IDs.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the alphabet used for generated codes (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// RoomCodeLength is the fixed length of generated room codes.
	RoomCodeLength = 6

	// GuestIDPrefix marks identifiers minted for anonymous callers.
	GuestIDPrefix = "guest_"

	// guestIDRawLength is the length of the random part of a guest ID.
	guestIDRawLength = 6
)

var base62Len = big.NewInt(int64(len(Base62Chars)))

// base62String draws length characters from the Base62 alphabet using
// crypto/rand.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, base62Len)
		if err != nil {
			return "", fmt.Errorf("generate random base62 character: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// RoomCode generates a fresh Base62 room code.
func RoomCode() (string, error) {
	return base62String(RoomCodeLength)
}

// GuestID mints an identifier for an anonymous caller.
func GuestID() (string, error) {
	raw, err := base62String(guestIDRawLength)
	if err != nil {
		return "", err
	}
	return GuestIDPrefix + raw, nil
}

// GuestNickname generates a fallback display name for anonymous callers who
// did not supply one.
func GuestNickname() (string, error) {
	raw, err := base62String(6)
	if err != nil {
		return "", err
	}
	return "Guest_" + raw, nil
}

// MessageID returns a UUID v4 string used as a chat message identifier.
func MessageID() string {
	return uuid.New().String()
}

// IsValidRoomCode reports whether code has the generated room code shape.
func IsValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}
