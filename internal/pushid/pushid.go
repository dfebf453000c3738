// Package pushid generates 20-character identifiers whose lexicographic
// order matches generation order in time (spec.md §4.5).
package pushid

import (
	"crypto/rand"
	"sync"
)

// alphabet is ordered so that '-' < '0' < ... < 'z' under plain byte
// comparison, which is what gives push-ids their lexicographic-order
// guarantee.
const alphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

// Generator produces monotonically ordered push-ids. Next serializes
// callers on an internal mutex, so a Generator is safe for concurrent
// use; the Repo coordinator owns one instance.
type Generator struct {
	mu           sync.Mutex
	lastMillis   int64
	lastRandom   [12]int
	haveLast     bool
}

// New returns a fresh Generator.
func New() *Generator {
	return &Generator{}
}

// Next returns the next push-id for the given serverTimeMillis. Two
// calls at the same millis produce ids whose last 12 characters are a
// little-endian base-64 increment of each other (spec.md §4.5, §8 S4).
func (g *Generator) Next(serverTimeMillis int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var random [12]int
	if g.haveLast && serverTimeMillis == g.lastMillis {
		random = incrementCounter(g.lastRandom)
	} else {
		random = randomTail()
	}

	g.lastMillis = serverTimeMillis
	g.lastRandom = random
	g.haveLast = true

	buf := make([]byte, 20)
	encodeTimestamp(buf[:8], serverTimeMillis)
	for i, v := range random {
		buf[8+i] = alphabet[v]
	}
	return string(buf)
}

func encodeTimestamp(dst []byte, millis int64) {
	for i := 7; i >= 0; i-- {
		dst[i] = alphabet[millis%64]
		millis /= 64
	}
}

func randomTail() [12]int {
	var buf [12]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err) // crypto/rand failing is unrecoverable
	}
	var out [12]int
	for i, b := range buf {
		out[i] = int(b) % 64
	}
	return out
}

// incrementCounter increments random as a little-endian base-64
// counter: the rightmost index (11) is the least-significant digit;
// overflow carries toward index 0 (spec.md §4.5).
func incrementCounter(random [12]int) [12]int {
	for i := 11; i >= 0; i-- {
		if random[i] == 63 {
			random[i] = 0
			continue
		}
		random[i]++
		return random
	}
	// All 12 digits overflowed; spec leaves this case as "carries
	// toward index 0" with no further widening, so we saturate at all
	// zeros, matching a full wraparound of the counter space.
	return random
}
