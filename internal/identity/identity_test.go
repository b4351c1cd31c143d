package identity

import (
	"errors"
	"os/user"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemResolver_ResolveReal(t *testing.T) {
	resolver := NewResolver()

	real, err := resolver.ResolveReal()
	require.NoError(t, err)

	assert.Equal(t, syscall.Getuid(), real.UID)

	current, err := user.Current()
	require.NoError(t, err)
	assert.Equal(t, current.Username, real.Name)
}

func TestSystemResolver_ResolveEffective(t *testing.T) {
	resolver := NewResolver()

	effective, err := resolver.ResolveEffective()
	require.NoError(t, err)
	assert.Equal(t, syscall.Geteuid(), effective.UID)
	assert.NotEmpty(t, effective.Name)
}

func TestResolve_BothIdentities(t *testing.T) {
	inv, err := Resolve(NewResolver())
	require.NoError(t, err)

	assert.NotNil(t, inv.Real)
	assert.NotNil(t, inv.Effective)
	assert.Equal(t, syscall.Getuid(), inv.Real.UID)
	assert.Equal(t, syscall.Geteuid(), inv.Effective.UID)
}

type failingResolver struct {
	failReal      bool
	failEffective bool
}

func (f *failingResolver) ResolveReal() (*User, error) {
	if f.failReal {
		return nil, &LookupError{UID: 4242, Err: ErrUnknownUID}
	}
	return &User{UID: 1000, Name: "alice"}, nil
}

func (f *failingResolver) ResolveEffective() (*User, error) {
	if f.failEffective {
		return nil, &LookupError{UID: 4243, Err: ErrUnknownUID}
	}
	return &User{UID: 0, Name: "root"}, nil
}

func TestResolve_RealLookupFailureIsFatal(t *testing.T) {
	_, err := Resolve(&failingResolver{failReal: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownUID)

	var lookupErr *LookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.Equal(t, 4242, lookupErr.UID)
}

func TestResolve_EffectiveLookupFailureIsFatal(t *testing.T) {
	_, err := Resolve(&failingResolver{failEffective: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownUID)
}

func TestLookupError_Message(t *testing.T) {
	err := &LookupError{UID: 4242, Err: ErrUnknownUID}
	assert.Equal(t, "identity lookup failed for uid 4242: no user record for uid", err.Error())
	assert.Equal(t, ErrUnknownUID, err.Unwrap())
}
