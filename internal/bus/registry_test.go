package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/armazcape/armazd/internal/machine"
)

func nopHandler(machine.Path, []string) ([]string, error) { return nil, nil }

func TestRegistryRegisterResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("machine.set", nopHandler))

	h, err := r.Resolve("machine.set")
	require.NoError(t, err)
	require.NotNil(t, h)
}

func TestRegistryDuplicateAlias(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("machine.set", nopHandler))

	err := r.Register("machine.set", nopHandler)
	var dae DuplicateAliasError
	require.True(t, errors.As(err, &dae))
	require.Equal(t, "machine.set", dae.Alias)
}

func TestRegistryUnknownCommand(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("machine.warp")
	var uce UnknownCommandError
	require.True(t, errors.As(err, &uce))
	require.Equal(t, "machine.warp", uce.Name)
}

func TestRegistryAliasesSorted(t *testing.T) {
	r := NewRegistry()
	for _, a := range []string{"machine.set", "machine.get", "machine.ping"} {
		require.NoError(t, r.Register(a, nopHandler))
	}
	require.Equal(t, []string{"machine.get", "machine.ping", "machine.set"}, r.Aliases())
}
