package uid

import (
	"hash/fnv"
	"os"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered 63-bit identifiers.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake returns a generator whose node number is derived from the
// host identity.
func NewSnowflake() (*Snowflake, error) {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(host))

	node, err := snowflake.NewNode(int64(h.Sum32() % 1024))
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns a new identifier.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
