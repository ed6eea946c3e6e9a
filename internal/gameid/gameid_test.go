package gameid

import (
	"testing"
	"time"

	"github.com/lox/toptrumps/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatchID(t *testing.T) {
	id := NewMatchID()
	require.Len(t, id, 26)
	require.NoError(t, ValidateMatchID(id))
}

func TestNewMatchIDUnique(t *testing.T) {
	ids := make(map[string]bool)
	for range 100 {
		id := NewMatchID()
		require.False(t, ids[id], "duplicate ID generated: %s", id)
		ids[id] = true
	}
}

func TestNewMatchIDTimeSorted(t *testing.T) {
	first := NewMatchID()
	time.Sleep(2 * time.Millisecond)
	second := NewMatchID()
	assert.Less(t, first, second)
}

func TestValidateMatchID(t *testing.T) {
	assert.Error(t, ValidateMatchID("short"))
	assert.Error(t, ValidateMatchID("0123456789abcdefghjkmnpqrU"))
	assert.NoError(t, ValidateMatchID("0123456789abcdefghjkmnpqrs"))
}

func TestRoomCodes(t *testing.T) {
	rng := randutil.New(42)
	code := NewRoomCode(rng)
	assert.Len(t, code, RoomCodeLength)
	assert.True(t, ValidRoomCode(code))

	again := NewRoomCode(randutil.New(42))
	assert.Equal(t, code, again, "same seed should give the same code")

	assert.True(t, ValidRoomCode("ab12cd"))
	assert.False(t, ValidRoomCode("AB12C"))
	assert.False(t, ValidRoomCode("AB-2CD"))
	assert.Equal(t, "AB12CD", FormatRoomCode(" ab-12 cd "))
}
