package statetoken_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oautherrors "go.pilab.hu/oauthkit/errors"
	"go.pilab.hu/oauthkit/signing"
	"go.pilab.hu/oauthkit/statetoken"
)

var testSecret = []byte("test-state-secret")

func TestCodec_RoundTrip(t *testing.T) {
	codec := statetoken.NewCodec(testSecret)

	payloads := []string{"", "user-42", `{"next":"/settings"}`}
	for _, payload := range payloads {
		encoded, err := codec.Encode("github", "cb-main", payload)
		require.NoError(t, err)
		require.NotEmpty(t, encoded)

		state, err := codec.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, "github", state.ServiceName)
		assert.Equal(t, "cb-main", state.CallbackID)
		assert.Equal(t, payload, state.Payload)
	}
}

func TestCodec_RejectsTamperedToken(t *testing.T) {
	codec := statetoken.NewCodec(testSecret)

	encoded, err := codec.Encode("github", "cb-main", "data")
	require.NoError(t, err)

	// Flip a character in the signature segment.
	tampered := encoded[:len(encoded)-2] + "xx"
	_, err = codec.Decode(tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, oautherrors.ErrInvalidState)
}

func TestCodec_SharedSigner(t *testing.T) {
	signer := signing.NewTokenSigner()
	signer.AddHMACKey("deploy-key", testSecret)

	codec := statetoken.NewCodec(testSecret, statetoken.WithSigner(signer, "deploy-key"))

	encoded, err := codec.Encode("github", "cb-main", "user-42")
	require.NoError(t, err)

	state, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "github", state.ServiceName)
	assert.Equal(t, "user-42", state.Payload)
}

func TestCodec_SharedSignerUnknownKey(t *testing.T) {
	codec := statetoken.NewCodec(testSecret,
		statetoken.WithSigner(signing.NewTokenSigner(), "missing-key"))

	_, err := codec.Encode("github", "cb-main", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, signing.ErrInvalidKeyID)
}

func TestCodec_RejectsWrongSecret(t *testing.T) {
	encoded, err := statetoken.NewCodec([]byte("secret-a")).Encode("github", "cb", "")
	require.NoError(t, err)

	_, err = statetoken.NewCodec([]byte("secret-b")).Decode(encoded)
	assert.ErrorIs(t, err, oautherrors.ErrInvalidState)
}

func TestCodec_RejectsStaleToken(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issued

	codec := statetoken.NewCodec(testSecret,
		statetoken.WithClock(func() time.Time { return now }))

	encoded, err := codec.Encode("github", "cb-main", "data")
	require.NoError(t, err)

	// Still fine just inside the lifetime.
	now = issued.Add(statetoken.DefaultMaxAge - time.Second)
	_, err = codec.Decode(encoded)
	require.NoError(t, err)

	// The signature is still valid, only the age disqualifies it.
	now = issued.Add(statetoken.DefaultMaxAge + time.Second)
	_, err = codec.Decode(encoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, oautherrors.ErrInvalidState)
	assert.Contains(t, err.Error(), "expired")
}

func TestCodec_RejectsMalformedToken(t *testing.T) {
	codec := statetoken.NewCodec(testSecret)

	for _, state := range []string{"", "garbage", "a.b", strings.Repeat("x", 100)} {
		_, err := codec.Decode(state)
		assert.ErrorIs(t, err, oautherrors.ErrInvalidState, "state %q", state)
	}
}

func TestCodec_MaxAgeOption(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := issued

	codec := statetoken.NewCodec(testSecret,
		statetoken.WithMaxAge(time.Minute),
		statetoken.WithClock(func() time.Time { return now }))

	encoded, err := codec.Encode("slack", "cb", "")
	require.NoError(t, err)

	now = issued.Add(2 * time.Minute)
	_, err = codec.Decode(encoded)
	assert.ErrorIs(t, err, oautherrors.ErrInvalidState)
}
