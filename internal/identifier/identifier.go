// Package identifier allocates human-readable order and certificate
// identifiers from scans of existing records.
package identifier

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// OrderIDPrefix prefixes every order identifier.
const OrderIDPrefix = "ORD"

// CertificateCodePrefix prefixes every gift certificate code.
const CertificateCodePrefix = "GC"

// Certificate codes skip I, O, 0 and 1 to stay unambiguous when read
// aloud or retyped from a printed card.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const certificateCodeLength = 6

var orderIDPattern = regexp.MustCompile(`^ORD-(\d{4})-(\d+)-\d{4}$`)

// Generator allocates identifiers. The sequence component is derived
// deterministically from the existing identifiers; only the trailing
// salt is random.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Generator seeded from the clock.
func New() *Generator {
	return NewWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a Generator with a caller-supplied random source.
func NewWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// NextOrderID returns the next order identifier for the given year, in
// the form ORD-<year>-<sequence>-<salt>. The sequence is one greater
// than the highest sequence among well-formed identifiers of that year;
// malformed identifiers are skipped so they can never pull the sequence
// below the true maximum. The 4-digit salt reduces visual collision risk
// when two orders are created in the same instant.
func (g *Generator) NextOrderID(existing []string, year int) string {
	maxSeq := 0
	yearStr := strconv.Itoa(year)
	for _, id := range existing {
		m := orderIDPattern.FindStringSubmatch(id)
		if m == nil || m[1] != yearStr {
			continue
		}
		seq, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}

	g.mu.Lock()
	salt := g.rng.Intn(10000)
	g.mu.Unlock()

	return fmt.Sprintf("%s-%d-%06d-%04d", OrderIDPrefix, year, maxSeq+1, salt)
}

// SequenceOf extracts the numeric sequence from a well-formed order
// identifier. It returns false for malformed identifiers.
func SequenceOf(id string) (int, bool) {
	m := orderIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// NextCertificateCode returns a fresh certificate code of the form
// GC-XXXXXX that does not collide, case-insensitively, with any code in
// the existing set.
func (g *Generator) NextCertificateCode(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, code := range existing {
		taken[strings.ToUpper(code)] = struct{}{}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		var b strings.Builder
		b.WriteString(CertificateCodePrefix)
		b.WriteByte('-')
		for i := 0; i < certificateCodeLength; i++ {
			b.WriteByte(codeAlphabet[g.rng.Intn(len(codeAlphabet))])
		}
		code := b.String()
		if _, ok := taken[code]; !ok {
			return code
		}
	}
}
