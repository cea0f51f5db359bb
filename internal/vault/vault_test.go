package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	data  map[string]map[string]any
	calls int
}

func (f *fakeReader) ReadKV(_ context.Context, mount, path string) (map[string]any, error) {
	f.calls++
	d, ok := f.data[mount+"/"+path]
	if !ok {
		return nil, errors.New("404")
	}
	return d, nil
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("vault:secret/builder/db#password")
	require.NoError(t, err)
	assert.Equal(t, Ref{Mount: "secret", Path: "builder/db", Key: "password"}, ref)
	assert.Equal(t, "vault:secret/builder/db#password", ref.String())

	for _, bad := range []string{"secret/db#pw", "vault:secret/db", "vault:secret#pw", "vault:/db#pw", "vault:secret/db#"} {
		_, err := ParseRef(bad)
		assert.Error(t, err, bad)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	r := &fakeReader{data: map[string]map[string]any{
		"secret/builder/db": {"password": "s3cret", "port": 3306},
	}}
	c := NewWithReader(r, nil)

	v, err := c.Resolve(ctx, "plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
	assert.Zero(t, r.calls)

	v, err = c.Resolve(ctx, "vault:secret/builder/db#password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = c.Resolve(ctx, "vault:secret/builder/db#password")
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls, "second lookup is cached")

	_, err = c.Resolve(ctx, "vault:secret/builder/db#port")
	assert.ErrorContains(t, err, "not a string")

	_, err = c.Resolve(ctx, "vault:secret/builder/db#user")
	assert.ErrorContains(t, err, "not found")

	_, err = c.Resolve(ctx, "vault:secret/missing#x")
	assert.Error(t, err)
}
