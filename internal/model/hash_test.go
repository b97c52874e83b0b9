package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHashSnapshotDeterministic verifies the digest is stable across calls
// and across property-map iteration order.
func TestHashSnapshotDeterministic(t *testing.T) {
	s := Snapshot{
		Components: []Component{
			{ID: "c1", Type: "service", X: 100, Y: 200, Properties: map[string]any{"name": "api", "replicas": 2}},
			{ID: "c2", Type: "db", X: 300, Y: 200},
		},
		Connections: []Connection{
			{ID: "e1", SourceID: "c1", TargetID: "c2", Type: "data"},
		},
	}

	first, err := HashSnapshot(s)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := HashSnapshot(s)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

// TestHashSnapshotSensitive verifies any entity change moves the digest.
func TestHashSnapshotSensitive(t *testing.T) {
	base := Snapshot{Components: []Component{{ID: "c1", Type: "service", X: 0, Y: 0}}}
	moved := Snapshot{Components: []Component{{ID: "c1", Type: "service", X: 1, Y: 0}}}

	a := MustHashSnapshot(base)
	b := MustHashSnapshot(moved)
	assert.NotEqual(t, a, b)
}

// TestHashDomainSeparation verifies the same bytes hashed under different
// domains produce different digests.
func TestHashDomainSeparation(t *testing.T) {
	v := map[string]any{"id": "c1"}

	a, err := HashJSON(DomainSnapshot, v)
	require.NoError(t, err)
	b, err := HashJSON(DomainTrace, v)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
	assert.Len(t, b, 64)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("updateComponent", map[string]any{"id": "c1", "x": 5})
	b := Fingerprint("updateComponent", map[string]any{"x": 5, "id": "c1"})
	c := Fingerprint("updateComponent", map[string]any{"id": "c1", "x": 6})
	d := Fingerprint("removeComponent", map[string]any{"id": "c1", "x": 5})

	assert.Equal(t, a, b, "map order must not affect the fingerprint")
	assert.NotEqual(t, a, c, "payload change must move the fingerprint")
	assert.NotEqual(t, a, d, "action name is part of the fingerprint")
}

// TestFingerprintUnencodablePayload verifies the detector-facing digest
// degrades instead of failing when a payload cannot be encoded.
func TestFingerprintUnencodablePayload(t *testing.T) {
	fp := Fingerprint("updateComponent", make(chan int))
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, Fingerprint("updateComponent", make(chan int)))
}
