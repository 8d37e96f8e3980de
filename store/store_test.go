package store

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDIDKeyStore(t *testing.T) {
	s := NewMemoryDIDKeyStore()
	_, ok := s.Lookup("did:key:absent")
	assert.False(t, ok)

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	s.Register("did:key:alice", pub)

	got, ok := s.Lookup("did:key:alice")
	require.True(t, ok)
	assert.Equal(t, pub, got)
}

func TestMemoryCapabilityStore(t *testing.T) {
	s := NewMemoryCapabilityStore()
	_, ok := s.Get("urn:uuid:missing")
	assert.False(t, ok)

	s.Put("urn:uuid:1", "payload")
	got, ok := s.Get("urn:uuid:1")
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestMemoryRevocationSetIsMonotone(t *testing.T) {
	s := NewMemoryRevocationSet()
	assert.False(t, s.IsRevoked("urn:uuid:1"))
	s.Revoke("urn:uuid:1")
	assert.True(t, s.IsRevoked("urn:uuid:1"))
}

func TestMemoryNonceStoreEviction(t *testing.T) {
	s := NewMemoryNonceStore()
	assert.False(t, s.Seen("n1"))

	old := time.Now().Add(-time.Hour)
	s.Record("n1", old)
	assert.True(t, s.Seen("n1"))

	evicted := s.Evict(time.Now().Add(-time.Minute))
	assert.Equal(t, 1, evicted)
	assert.False(t, s.Seen("n1"))
}
