package services

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// The fairness engine implements the commit-reveal scheme for the four-way
// instant-win game. A fresh server seed is generated per bet and its hash
// published with the result, so any party can recompute the outcome from
// the revealed seed and check it against the commitment.

// FairnessResult is the full disclosure tuple returned with a settled bet.
type FairnessResult struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
	Outcome        int    `json:"outcome"`
}

// GenerateServerSeed returns 32 bytes of fresh entropy as hex. Seeds are
// never reused between bets.
func GenerateServerSeed() string {
	return randomHex(32)
}

// GenerateClientSeed returns a 16-byte hex seed for callers that do not
// supply their own.
func GenerateClientSeed() string {
	return randomHex(16)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot produce entropy at all
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

// HashServerSeed computes the one-way commitment published before the
// outcome is used.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// ComputeOutcome derives the outcome in [0,3] from the seed pair and nonce.
// HMAC-SHA256 keyed by the server seed over "clientSeed:nonce"; the first
// four bytes of the hex digest read as a uint32, reduced modulo 4. Pure and
// deterministic: the same inputs always produce the same outcome.
func ComputeOutcome(serverSeed, clientSeed string, nonce int64) int {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	mac.Write([]byte(clientSeed + ":" + strconv.FormatInt(nonce, 10)))
	digest := hex.EncodeToString(mac.Sum(nil))

	value, err := strconv.ParseUint(digest[:8], 16, 32)
	if err != nil {
		// digest is always valid hex; unreachable
		panic(fmt.Sprintf("failed to parse digest prefix: %v", err))
	}
	return int(value % 4)
}

// BuildFairResult computes the commitment and outcome for a seed tuple.
func BuildFairResult(serverSeed, clientSeed string, nonce int64) FairnessResult {
	return FairnessResult{
		ServerSeed:     serverSeed,
		ServerSeedHash: HashServerSeed(serverSeed),
		ClientSeed:     clientSeed,
		Nonce:          nonce,
		Outcome:        ComputeOutcome(serverSeed, clientSeed, nonce),
	}
}
