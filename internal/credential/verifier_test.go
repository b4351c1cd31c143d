package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/McRaeAlex/execas/internal/identity"
)

type fakeChannel struct {
	interactive bool
	secret      []byte
	err         error
	delay       time.Duration
	reads       int
	handedOut   []byte
}

func (f *fakeChannel) IsInteractive() bool { return f.interactive }

func (f *fakeChannel) ReadSecret(string) ([]byte, error) {
	f.reads++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	// Hand out a copy so the verifier's zeroing does not destroy the fixture.
	line := make([]byte, len(f.secret))
	copy(line, f.secret)
	f.handedOut = line
	return line, nil
}

type fakeStore struct {
	hashes map[string][]byte
}

func newFakeStore(t *testing.T, records map[string]string) *fakeStore {
	t.Helper()
	hashes := make(map[string][]byte)
	for name, password := range records {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hashes[name] = hash
	}
	return &fakeStore{hashes: hashes}
}

func (f *fakeStore) LookupHash(name string) ([]byte, error) {
	hash, ok := f.hashes[name]
	if !ok {
		return nil, ErrNoCredentialRecord
	}
	return hash, nil
}

var alice = &identity.User{UID: 1000, Name: "alice"}

func TestVerifier_CorrectSecret(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, secret: []byte("correct horse")}

	verifier := NewVerifier(store, channel, nil)
	assert.NoError(t, verifier.Verify(context.Background(), alice))
}

func TestVerifier_WrongSecret(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, secret: []byte("battery staple")}

	verifier := NewVerifier(store, channel, nil)
	assert.ErrorIs(t, verifier.Verify(context.Background(), alice), ErrMismatch)
}

func TestVerifier_EmptySecretIsMismatch(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, secret: nil}

	verifier := NewVerifier(store, channel, nil)
	assert.ErrorIs(t, verifier.Verify(context.Background(), alice), ErrMismatch)
}

func TestVerifier_SecretWipedAfterVerify(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})

	// Success and failure paths must both leave the read secret zeroed.
	for _, candidate := range []string{"correct horse", "wrong"} {
		channel := &fakeChannel{interactive: true, secret: []byte(candidate)}
		verifier := NewVerifier(store, channel, nil)

		_ = verifier.Verify(context.Background(), alice)

		require.NotNil(t, channel.handedOut)
		assert.Equal(t, make([]byte, len(candidate)), channel.handedOut, candidate)
	}
}

func TestVerifier_NoCredentialRecordIsDenial(t *testing.T) {
	store := newFakeStore(t, nil)
	channel := &fakeChannel{interactive: true, secret: []byte("anything")}

	verifier := NewVerifier(store, channel, nil)
	assert.ErrorIs(t, verifier.Verify(context.Background(), alice), ErrNoCredentialRecord)
}

func TestVerifier_NonInteractiveChannelNeverPrompts(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: false, secret: []byte("correct horse")}

	verifier := NewVerifier(store, channel, nil)
	assert.ErrorIs(t, verifier.Verify(context.Background(), alice), ErrNonInteractive)
	assert.Zero(t, channel.reads, "a non-interactive channel must never be read")
}

func TestVerifier_PromptTimeoutDenies(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, secret: []byte("correct horse"), delay: 200 * time.Millisecond}

	verifier := NewVerifier(store, channel, nil, WithTimeout(10*time.Millisecond))
	assert.ErrorIs(t, verifier.Verify(context.Background(), alice), ErrPromptTimeout)
}

func TestVerifier_ContextCancellationDenies(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, secret: []byte("correct horse"), delay: 200 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	verifier := NewVerifier(store, channel, nil)
	err := verifier.Verify(ctx, alice)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifier_ChannelReadError(t *testing.T) {
	store := newFakeStore(t, map[string]string{"alice": "correct horse"})
	channel := &fakeChannel{interactive: true, err: errors.New("tty gone")}

	verifier := NewVerifier(store, channel, nil)
	assert.Error(t, verifier.Verify(context.Background(), alice))
}

func TestVerifier_ComparisonTimeIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("timing measurement")
	}

	// bcrypt hashes the candidate before comparing, so the position of the
	// first differing byte cannot steer the comparison time. Sanity-check
	// that an early mismatch and a late mismatch are within the same order
	// of magnitude.
	store := newFakeStore(t, map[string]string{"alice": "aaaaaaaaaaaaaaaa"})
	verifier := NewVerifier(store, &fakeChannel{interactive: true}, nil)

	measure := func(candidate string) time.Duration {
		channel := &fakeChannel{interactive: true, secret: []byte(candidate)}
		verifier.channel = channel
		start := time.Now()
		for i := 0; i < 10; i++ {
			err := verifier.Verify(context.Background(), alice)
			require.ErrorIs(t, err, ErrMismatch)
		}
		return time.Since(start)
	}

	early := measure("Xaaaaaaaaaaaaaaa")
	late := measure("aaaaaaaaaaaaaaaX")

	ratio := float64(early) / float64(late)
	assert.Greater(t, ratio, 0.2)
	assert.Less(t, ratio, 5.0)
}
