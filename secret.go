package apicore

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	secretAlgorithm   = "argon2id"
	secretHashPrefix  = "$" + secretAlgorithm + "$"
	secretMemoryKB    = 64 * 1024
	secretTime        = 1
	secretParallelism = 2
	secretSaltLength  = 16
	secretKeyLength   = 32
	minSecretMemoryKB = 8 * 1024
)

// IsHashedSecret reports whether s is an argon2id PHC string.
func IsHashedSecret(s string) bool {
	return strings.HasPrefix(s, secretHashPrefix)
}

// HashSecret derives an argon2id PHC string for a consumer secret.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("hash secret: empty secret")
	}

	salt := make([]byte, secretSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("hash secret: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, secretTime, secretMemoryKB, secretParallelism, secretKeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		secretAlgorithm,
		argon2.Version,
		secretMemoryKB,
		secretTime,
		secretParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifySecret compares a presented secret with a stored one. Stored values
// are either argon2id PHC strings or plain secrets compared in constant time.
func VerifySecret(presented, stored string) (bool, error) {
	if !IsHashedSecret(stored) {
		return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1, nil
	}

	p, err := parseSecretHash(stored)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(presented), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

type secretHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parseSecretHash(encoded string) (*secretHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != secretAlgorithm {
		return nil, errors.New("parse secret hash: invalid format")
	}

	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("parse secret hash: unsupported version")
	}

	var h secretHash
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("parse secret hash: invalid parameter")
		}
		switch k {
		case "m":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < minSecretMemoryKB {
				return nil, errors.New("parse secret hash: invalid memory parameter")
			}
			h.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil || n < 1 {
				return nil, errors.New("parse secret hash: invalid time parameter")
			}
			h.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(v, 10, 8)
			if err != nil || n < 1 {
				return nil, errors.New("parse secret hash: invalid parallelism parameter")
			}
			h.parallelism = uint8(n)
		default:
			return nil, errors.New("parse secret hash: unsupported parameter")
		}
	}
	if h.memory == 0 || h.time == 0 || h.parallelism == 0 {
		return nil, errors.New("parse secret hash: missing parameters")
	}

	var err error
	if h.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(h.salt) < secretSaltLength {
		return nil, errors.New("parse secret hash: invalid salt")
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.key) == 0 {
		return nil, errors.New("parse secret hash: invalid key")
	}

	return &h, nil
}
