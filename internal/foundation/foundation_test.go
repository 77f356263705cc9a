package foundation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionSomeNone(t *testing.T) {
	s := Some(42)
	require.True(t, s.IsSome())
	require.False(t, s.IsNone())
	require.Equal(t, 42, s.Unwrap())
	require.Equal(t, 42, s.UnwrapOr(7))

	n := None[int]()
	require.True(t, n.IsNone())
	require.Equal(t, 7, n.UnwrapOr(7))
	require.Panics(t, func() { n.Unwrap() })
}

func TestOptionMatch(t *testing.T) {
	var got bool
	Some(true).Match(func(v bool) { got = v }, func() { t.Fatal("onNone called for Some") })
	require.True(t, got)

	called := false
	None[bool]().Match(func(bool) { t.Fatal("onSome called for None") }, func() { called = true })
	require.True(t, called)
}

func TestResultOkErr(t *testing.T) {
	ok := Ok[string, error]("ready")
	require.True(t, ok.IsOk())
	require.Equal(t, "ready", ok.Unwrap())
	v, err := ok.Get()
	require.NoError(t, err)
	require.Equal(t, "ready", v)

	boom := errors.New("boom")
	bad := Err[string](boom)
	require.True(t, bad.IsErr())
	require.Equal(t, boom, bad.UnwrapErr())
	_, err = bad.Get()
	require.ErrorIs(t, err, boom)
	require.Panics(t, func() { bad.Unwrap() })
}
