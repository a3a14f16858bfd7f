package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeOutcomeDeterministic(t *testing.T) {
	server := GenerateServerSeed()
	client := GenerateClientSeed()

	first := ComputeOutcome(server, client, 7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ComputeOutcome(server, client, 7))
	}
}

func TestComputeOutcomeRange(t *testing.T) {
	server := GenerateServerSeed()
	client := GenerateClientSeed()

	for nonce := int64(1); nonce <= 200; nonce++ {
		outcome := ComputeOutcome(server, client, nonce)
		require.GreaterOrEqual(t, outcome, 0)
		require.LessOrEqual(t, outcome, 3)
	}
}

func TestComputeOutcomeSensitivity(t *testing.T) {
	server := "aa1cb3f83619c0f0cd0ffc45f32fc9ab10ae673550c2dc5fc7d34d17b4046601"
	client := "1b44ab398d8a7a0b16ff9b4a2f2c88aa"

	base := ComputeOutcome(server, client, 1)

	// a different nonce must be an independent draw, not necessarily a
	// different outcome, so check the digest path instead: tweaking any
	// input changes at least one of a run of outcomes
	var changed bool
	for nonce := int64(1); nonce <= 32; nonce++ {
		if ComputeOutcome(server, client, nonce) != base {
			changed = true
			break
		}
	}
	assert.True(t, changed, "outcomes should vary across nonces")

	tampered := "b" + server[1:]
	var diverged bool
	for nonce := int64(1); nonce <= 32; nonce++ {
		if ComputeOutcome(server, client, nonce) != ComputeOutcome(tampered, client, nonce) {
			diverged = true
			break
		}
	}
	assert.True(t, diverged, "tampered server seed should change outcomes")
}

func TestHashServerSeedCommitment(t *testing.T) {
	assert.Equal(t,
		"2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae",
		HashServerSeed("foo"))
	assert.NotEqual(t, HashServerSeed("foo"), HashServerSeed("bar"))
}

func TestBuildFairResult(t *testing.T) {
	server := GenerateServerSeed()
	client := GenerateClientSeed()

	fair := BuildFairResult(server, client, 3)
	assert.Equal(t, server, fair.ServerSeed)
	assert.Equal(t, HashServerSeed(server), fair.ServerSeedHash)
	assert.Equal(t, client, fair.ClientSeed)
	assert.Equal(t, int64(3), fair.Nonce)
	assert.Equal(t, ComputeOutcome(server, client, 3), fair.Outcome)
}

func TestSeedLengths(t *testing.T) {
	assert.Len(t, GenerateServerSeed(), 64)
	assert.Len(t, GenerateClientSeed(), 32)
	assert.NotEqual(t, GenerateServerSeed(), GenerateServerSeed())
}
