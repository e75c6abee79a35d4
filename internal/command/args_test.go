package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntType(t *testing.T) {
	v, ok := Int.Parse("42")
	require.True(t, ok)
	assert.Equal(t, int64(42), v)

	_, ok = Int.Parse("4.2")
	assert.False(t, ok)

	_, ok = Int.Parse("abc")
	assert.False(t, ok)
}

func TestDecimalTypeAcceptsCommaSeparator(t *testing.T) {
	v, ok := Decimal.Parse("3,14")
	require.True(t, ok)
	assert.InDelta(t, 3.14, v.(float64), 1e-9)

	v, ok = Decimal.Parse("2.5")
	require.True(t, ok)
	assert.InDelta(t, 2.5, v.(float64), 1e-9)

	_, ok = Decimal.Parse("пять")
	assert.False(t, ok)
}

func TestArgsAccessors(t *testing.T) {
	args := Args{
		"count":  int64(7),
		"price":  4.5,
		"name":   "prius",
		"absent": nil,
	}

	n, ok := args.Int("count")
	require.True(t, ok)
	assert.Equal(t, int64(7), n)

	// Whole numbers coerce into floats and back.
	f, ok := args.Float("count")
	require.True(t, ok)
	assert.Equal(t, 7.0, f)

	s, ok := args.String("name")
	require.True(t, ok)
	assert.Equal(t, "prius", s)

	assert.True(t, args.Present("name"))
	assert.False(t, args.Present("absent"))
	assert.False(t, args.Present("missing"))
}

func TestStoreConsumeIsOneShot(t *testing.T) {
	s := NewStore()
	s.Put(10, 5, Args{"x": int64(1)})

	got, ok := s.Consume(10, 5)
	require.True(t, ok)
	assert.Equal(t, int64(1), got["x"])

	_, ok = s.Consume(10, 5)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestStoreKeysDoNotCollide(t *testing.T) {
	s := NewStore()
	s.Put(10, 5, Args{"x": int64(1)})
	s.Put(10, 6, Args{"x": int64(2)})
	s.Put(11, 5, Args{"x": int64(3)})

	got, ok := s.Consume(10, 6)
	require.True(t, ok)
	assert.Equal(t, int64(2), got["x"])
	assert.Equal(t, 2, s.Len())
}
