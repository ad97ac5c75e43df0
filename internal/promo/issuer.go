// Package promo issues and redeems single-use discount codes.
package promo

import (
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
)

const (
	// issuedCapacity sizes the bloom filter over all codes ever issued.
	issuedCapacity = 1 << 16
	issuedFPR      = 0.001

	// maxDrawAttempts bounds suffix re-draws on a (probabilistic) collision.
	// A residual collision is undesirable but not fatal, so the last
	// candidate is used once the attempts run out.
	maxDrawAttempts = 8

	suffixLen = 4
)

// Issuer mints discount codes at every Nth completed order and tracks the
// single currently active, unredeemed code. At most one code is active at a
// time; issuing a new one silently replaces an unredeemed predecessor.
type Issuer struct {
	prefix   string
	interval int64

	mu      sync.Mutex
	current string // empty means no active code
	issued  *bloom.BloomFilter
	suffix  func() string
}

// NewIssuer creates an Issuer minting codes of the form "<prefix>-XXXX"
// every interval orders. An interval below 1 is clamped to 1 so Milestone
// never divides by zero.
func NewIssuer(prefix string, interval int) *Issuer {
	if interval < 1 {
		interval = 1
	}
	return &Issuer{
		prefix:   prefix,
		interval: int64(interval),
		issued:   bloom.NewWithEstimates(issuedCapacity, issuedFPR),
		suffix:   randomSuffix,
	}
}

// Interval returns the milestone interval N.
func (i *Issuer) Interval() int { return int(i.interval) }

// Milestone reports whether the given completed order count is an issuance
// milestone.
func (i *Issuer) Milestone(orderCount int64) bool {
	return orderCount > 0 && orderCount%i.interval == 0
}

// Current returns the active code, if any.
func (i *Issuer) Current() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current, i.current != ""
}

// Redeem atomically compares code against the active code (exact,
// case-sensitive) and clears it on a match. It reports whether the discount
// applies. A second redemption of the same code always fails: the first one
// cleared it.
func (i *Issuer) Redeem(code string) bool {
	if code == "" {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.current == "" || i.current != code {
		return false
	}
	i.current = ""
	return true
}

// Issue mints a new code, makes it the active one (overwriting any unredeemed
// prior code), and returns it. The suffix is re-drawn while the bloom filter
// reports a hit against previously issued codes, up to maxDrawAttempts.
func (i *Issuer) Issue() string {
	i.mu.Lock()
	defer i.mu.Unlock()

	code := i.prefix + "-" + i.suffix()
	for attempt := 1; attempt < maxDrawAttempts && i.issued.TestString(code); attempt++ {
		code = i.prefix + "-" + i.suffix()
	}
	i.issued.AddString(code)
	i.current = code
	return code
}

// randomSuffix derives a short unpredictable suffix from a fresh UUIDv4.
func randomSuffix() string {
	return strings.ToUpper(uuid.New().String()[:suffixLen])
}
