package mfa

import (
	"crypto/rand"
	"math/big"
)

// RecoveryCodeCount is how many backup codes a signup hands out.
const RecoveryCodeCount = 10

const recoveryAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

type RecoveryCodeGenerator interface {
	// Generate returns RecoveryCodeCount distinct codes.
	Generate() ([]string, error)
}

// RecoveryCode draws codes shaped XXXX-XXXX-XXXX from crypto/rand.
type RecoveryCode struct{}

func NewRecoveryCode() *RecoveryCode {
	return &RecoveryCode{}
}

func (rc *RecoveryCode) Generate() ([]string, error) {
	out := make([]string, 0, RecoveryCodeCount)
	seen := make(map[string]struct{}, RecoveryCodeCount)

	for len(out) < RecoveryCodeCount {
		code, err := newRecoveryCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out, nil
}

func newRecoveryCode() (string, error) {
	var buf [14]byte
	limit := big.NewInt(int64(len(recoveryAlphabet)))

	for i := range buf {
		if i == 4 || i == 9 {
			buf[i] = '-'
			continue
		}
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = recoveryAlphabet[n.Int64()]
	}

	return string(buf[:]), nil
}
