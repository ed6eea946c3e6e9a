// Package gameid generates match identifiers and human-friendly room codes.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Crockford base32, lower case. Sorts the same way the underlying UUIDv7 does.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Room codes are typed by players: upper case letters and digits only.
const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	RoomCodeLength   = 6
)

// RandSource allows deterministic room codes in tests.
type RandSource interface {
	IntN(n int) int
}

// NewMatchID returns a time-ordered 26 character match id derived from a UUIDv7.
func NewMatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the system entropy source does.
		id = uuid.New()
	}
	return encodeBase32(id)
}

func encodeBase32(data [16]byte) string {
	result := make([]byte, 26)
	for i := range 26 {
		bitOffset := i * 5
		byteIndex := bitOffset / 8
		bitIndex := bitOffset % 8

		var value uint8
		if byteIndex < 16 {
			if bitIndex <= 3 {
				value = (data[byteIndex] >> (3 - bitIndex)) & 0x1f
			} else {
				value = (data[byteIndex] << (bitIndex - 3)) & 0x1f
				if byteIndex+1 < 16 {
					value |= data[byteIndex+1] >> (11 - bitIndex)
				}
			}
		}
		result[i] = alphabet[value]
	}
	return string(result)
}

// ValidateMatchID checks that id has the shape produced by NewMatchID.
func ValidateMatchID(id string) error {
	if len(id) != 26 {
		return fmt.Errorf("match ID must be exactly 26 characters, got %d", len(id))
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}

// NewRoomCode returns a random 6 character room code.
func NewRoomCode(rng RandSource) string {
	var b strings.Builder
	b.Grow(RoomCodeLength)
	for range RoomCodeLength {
		b.WriteByte(roomCodeAlphabet[rng.IntN(len(roomCodeAlphabet))])
	}
	return b.String()
}

// FormatRoomCode upper-cases code and strips anything outside [A-Z0-9].
func FormatRoomCode(code string) string {
	code = strings.ToUpper(code)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(roomCodeAlphabet, r) {
			return r
		}
		return -1
	}, code)
}

// ValidRoomCode reports whether code (case-insensitively) is a well formed room code.
func ValidRoomCode(code string) bool {
	code = strings.ToUpper(code)
	if len(code) != RoomCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(roomCodeAlphabet, r) {
			return false
		}
	}
	return true
}
