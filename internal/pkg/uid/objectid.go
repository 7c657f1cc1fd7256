package uid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// ErrStableNodeIdentityUnavailable indicates no stable node identity is available.
var ErrStableNodeIdentityUnavailable = errors.New("uid: cannot determine stable node identity (machine-id/hostname unavailable)")

// ObjectIDGenerator produces opaque 64-char hex tokens. The layout is
// timestamp(6) | node(6) | pid(2) | counter(4) | random(14).
type ObjectIDGenerator struct {
	prefix  [14]byte
	counter atomic.Uint32
}

// NewObjectIDGenerator derives the node part from /etc/machine-id or the
// hostname.
func NewObjectIDGenerator() (*ObjectIDGenerator, error) {
	node, err := nodeIdentity()
	if err != nil {
		return nil, err
	}

	g := &ObjectIDGenerator{}
	sum := sha256.Sum256([]byte(node))
	copy(g.prefix[6:12], sum[:6])
	binary.BigEndian.PutUint16(g.prefix[12:14], uint16(os.Getpid()))

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}
	g.counter.Store(binary.BigEndian.Uint32(seed[:]))

	return g, nil
}

func nodeIdentity() (string, error) {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	}
	if h, err := os.Hostname(); err == nil {
		if h = strings.TrimSpace(h); h != "" {
			return h, nil
		}
	}

	return "", ErrStableNodeIdentityUnavailable
}

// Generate returns a new token. It is unique even if crypto/rand fails,
// because the counter part never repeats within a process.
func (g *ObjectIDGenerator) Generate() string {
	var raw [32]byte

	copy(raw[:14], g.prefix[:])

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(time.Now().UnixMilli()))
	copy(raw[0:6], ts[2:])

	binary.BigEndian.PutUint32(raw[14:18], g.counter.Add(1))

	if _, err := rand.Read(raw[18:]); err != nil {
		sum := sha256.Sum256(raw[:18])
		copy(raw[18:], sum[:])
	}

	return hex.EncodeToString(raw[:])
}
