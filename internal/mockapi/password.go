package mockapi

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
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength        = 16
	minKeyLength  uint32 = 16
	minPassBytes         = 10
	algorithmID          = "argon2id"
)

var (
	errPasswordTooShort = fmt.Errorf("password must be at least %d bytes", minPassBytes)
	errInvalidPHC       = errors.New("invalid PHC format")
)

// HashConfig sets argon2id cost parameters.
type HashConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashConfig is cheap enough for a local mock server.
func DefaultHashConfig() HashConfig {
	return HashConfig{Memory: minMemoryKB, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type hasher struct {
	config HashConfig
}

func newHasher(cfg HashConfig) (*hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, errors.New("hash memory must be >= 8192 KB")
	case cfg.Time < 1:
		return nil, errors.New("hash time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("hash parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, errors.New("hash salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return nil, errors.New("hash key length must be >= 16")
	}
	return &hasher{config: cfg}, nil
}

// hash uses the raw password bytes as given.
func (h *hasher) hash(password string) (string, error) {
	if len(password) < minPassBytes {
		return "", errPasswordTooShort
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.config.Time, h.config.Memory, h.config.Parallelism, h.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(key),
	), nil
}

func (h *hasher) verify(password, encoded string) (bool, error) {
	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return nil, errInvalidPHC
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("unsupported argon2 version")
	}

	var (
		out                 phc
		m, t, p             uint64
		seenM, seenT, seenP bool
		err                 error
	)
	for _, pair := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errInvalidPHC
		}
		switch k {
		case "m":
			m, err = strconv.ParseUint(v, 10, 32)
			seenM = err == nil && m >= uint64(minMemoryKB)
		case "t":
			t, err = strconv.ParseUint(v, 10, 32)
			seenT = err == nil && t >= 1
		case "p":
			p, err = strconv.ParseUint(v, 10, 8)
			seenP = err == nil && p >= 1
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if !seenM || !seenT || !seenP {
		return nil, errors.New("invalid parameters")
	}
	out.memory, out.time, out.parallelism = uint32(m), uint32(t), uint8(p)

	if out.salt, err = base64.StdEncoding.DecodeString(parts[4]); err != nil || len(out.salt) < minSaltLength {
		return nil, errors.New("invalid salt")
	}
	if out.key, err = base64.StdEncoding.DecodeString(parts[5]); err != nil || len(out.key) == 0 {
		return nil, errors.New("invalid hash")
	}
	return &out, nil
}
