package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"git.handmade.network/hmn/syllabus/src/oops"
	"golang.org/x/crypto/argon2"
)

type HashAlgorithm string

const Argon2id HashAlgorithm = "argon2id"

const saltLength = 16

/*
A stored password, written to the database as

	algorithm$config$salt$hash

with salt and hash base64-encoded.
*/
type HashedPassword struct {
	Algorithm  HashAlgorithm
	AlgoConfig string
	Salt       string
	Hash       string
}

func ParsePasswordString(s string) (HashedPassword, error) {
	pieces := strings.SplitN(s, "$", 4)
	if len(pieces) != 4 {
		return HashedPassword{}, oops.New(nil, "unrecognized password string format")
	}
	return HashedPassword{
		Algorithm:  HashAlgorithm(pieces[0]),
		AlgoConfig: pieces[1],
		Salt:       pieces[2],
		Hash:       pieces[3],
	}, nil
}

func (p HashedPassword) String() string {
	return strings.Join([]string{string(p.Algorithm), p.AlgoConfig, p.Salt, p.Hash}, "$")
}

type Argon2idConfig struct {
	Time      uint32
	Memory    uint32 // KiB
	Threads   uint8
	KeyLength uint32
}

// OWASP's minimum recommendation for argon2id.
var defaultArgon2id = Argon2idConfig{
	Time:      1,
	Memory:    40 * 1024,
	Threads:   1,
	KeyLength: 64,
}

func ParseArgon2idConfig(s string) (Argon2idConfig, error) {
	var cfg Argon2idConfig
	_, err := fmt.Sscanf(s, "t=%d,m=%d,p=%d,l=%d", &cfg.Time, &cfg.Memory, &cfg.Threads, &cfg.KeyLength)
	if err != nil {
		return Argon2idConfig{}, oops.New(err, "bad Argon2id config %q", s)
	}
	return cfg, nil
}

func (c Argon2idConfig) String() string {
	return fmt.Sprintf("t=%d,m=%d,p=%d,l=%d", c.Time, c.Memory, c.Threads, c.KeyLength)
}

func (c Argon2idConfig) key(password string, salt []byte) string {
	return base64.StdEncoding.EncodeToString(
		argon2.IDKey([]byte(password), salt, c.Time, c.Memory, c.Threads, c.KeyLength),
	)
}

func HashPassword(password string) HashedPassword {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		panic(oops.New(err, "failed to generate password salt"))
	}

	return HashedPassword{
		Algorithm:  Argon2id,
		AlgoConfig: defaultArgon2id.String(),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Hash:       defaultArgon2id.key(password, salt),
	}
}

func CheckPassword(password string, hashed HashedPassword) (bool, error) {
	if hashed.Algorithm != Argon2id {
		return false, oops.New(nil, "unrecognized password hash algorithm: %s", hashed.Algorithm)
	}

	cfg, err := ParseArgon2idConfig(hashed.AlgoConfig)
	if err != nil {
		return false, err
	}
	salt, err := base64.StdEncoding.DecodeString(hashed.Salt)
	if err != nil {
		return false, oops.New(err, "failed to decode salt")
	}

	return subtle.ConstantTimeCompare([]byte(cfg.key(password, salt)), []byte(hashed.Hash)) == 1, nil
}
