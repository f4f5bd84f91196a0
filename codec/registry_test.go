package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodec struct {
	uid  string
	name string
}

func (f *fakeCodec) Encode(EncodeParams) ([]byte, error)  { return nil, nil }
func (f *fakeCodec) Decode([]byte) (*DecodeResult, error) { return nil, nil }
func (f *fakeCodec) UID() string                          { return f.uid }
func (f *fakeCodec) Name() string                         { return f.name }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	c := &fakeCodec{uid: "1.2.840.10008.1.2.4.90", name: "fake"}
	r.Register(c)

	got, err := r.Get(c.uid)
	require.NoError(t, err)
	assert.Equal(t, "fake", got.Name())

	_, err = r.Get("1.2.3")
	assert.ErrorIs(t, err, ErrCodecNotFound)
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeCodec{uid: "u", name: "a"})
	r.Register(&fakeCodec{uid: "u", name: "b"})

	got, err := r.Get("u")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Name())
	assert.Len(t, r.UIDs(), 1)
}

func TestGlobalRegistry(t *testing.T) {
	assert.NotNil(t, GlobalRegistry())
}
