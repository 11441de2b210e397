//go:build darwin || (linux && (amd64 || arm64)) || windows

package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocReadWrite(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	ptr, err := p.Alloc(24)
	require.NoError(t, err)
	require.NotZero(t, ptr)
	assert.Zero(t, ptr%p.PtrSize(), "allocations are pointer aligned")
	assert.Equal(t, 1, p.Live())

	p.WritePtr(ptr, 0xCAFE)
	p.WriteU32(ptr+8, 0xDEADBEEF)
	assert.Equal(t, uintptr(0xCAFE), p.ReadPtr(ptr))
	assert.Equal(t, uint32(0xDEADBEEF), p.ReadU32(ptr+8))
	assert.Equal(t, uint16(0xBEEF), p.ReadU16(ptr+8))

	p.Write(ptr+16, []byte{1, 2, 3})
	assert.Equal(t, []byte{1, 2, 3}, p.Read(ptr+16, 3))

	p.Free(ptr)
	assert.Equal(t, 0, p.Live())
	p.Free(0)
}

func TestCallbackRoundTrip(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	fn, err := p.NewCallback(3, func(args []uintptr) uintptr {
		return args[0] + args[1]*args[2]
	})
	require.NoError(t, err)

	assert.Equal(t, uintptr(7), p.Invoke(fn, 1, 2, 3))
}

func TestCallbackArityLimit(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	_, err = p.NewCallback(MaxArity+1, func([]uintptr) uintptr { return 0 })
	assert.Error(t, err)

	_, err = p.NewCallback(1, nil)
	assert.Error(t, err)
}

func TestByValueSmall(t *testing.T) {
	p, err := New()
	require.NoError(t, err)

	words, release, err := p.ByValue([]byte{1, 0, 0, 0})
	require.NoError(t, err)
	defer release()
	assert.Equal(t, []uintptr{1}, words)
}
