// Package hashformat validates and normalizes candidate hashes for a given
// hash type. Validation is atomic: a single malformed entry rejects the
// whole batch, so a hashlist is never partially inserted.
package hashformat

import (
	"fmt"
	"strings"
)

// Hash type identifiers follow the hashcat -m numbering.
const (
	TypeMD5    = 0
	TypeSHA1   = 100
	TypeNTLM   = 1000
	TypeSHA256 = 1400
	TypeSHA512 = 1700
	TypeBcrypt = 3200
)

type format struct {
	name     string
	validate func(string) bool
	// lowercase reports whether the canonical form is lowercased hex
	lowercase bool
}

var formats = map[int]format{
	TypeMD5:    {name: "MD5", validate: hexOfLen(32), lowercase: true},
	TypeSHA1:   {name: "SHA1", validate: hexOfLen(40), lowercase: true},
	TypeNTLM:   {name: "NTLM", validate: hexOfLen(32), lowercase: true},
	TypeSHA256: {name: "SHA256", validate: hexOfLen(64), lowercase: true},
	TypeSHA512: {name: "SHA512", validate: hexOfLen(128), lowercase: true},
	TypeBcrypt: {name: "bcrypt", validate: isBcrypt},
}

func hexOfLen(n int) func(string) bool {
	return func(s string) bool {
		if len(s) != n {
			return false
		}
		for _, c := range s {
			switch {
			case c >= '0' && c <= '9':
			case c >= 'a' && c <= 'f':
			case c >= 'A' && c <= 'F':
			default:
				return false
			}
		}
		return true
	}
}

func isBcrypt(s string) bool {
	if len(s) != 60 {
		return false
	}
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

// IsSupportedType reports whether the hash type has a registered format.
func IsSupportedType(hashType int) bool {
	_, ok := formats[hashType]
	return ok
}

// TypeName returns the human name for a hash type, or "" if unknown.
func TypeName(hashType int) string {
	return formats[hashType].name
}

// Normalize validates every entry against the hash type and returns the
// canonical form of each, in input order. When hasUsernames is set, each
// entry must be "username:hash" and the username part is stripped before
// validation; when it is not set, entries are validated verbatim, so a
// stray "username:" prefix fails validation the same way any other
// malformed entry does.
func Normalize(hashes []string, hashType int, hasUsernames bool) ([]string, error) {
	f, ok := formats[hashType]
	if !ok {
		return nil, fmt.Errorf("unsupported hash type %d", hashType)
	}

	normalized := make([]string, len(hashes))
	for i, entry := range hashes {
		hash := strings.TrimSpace(entry)
		if hasUsernames {
			username, rest, found := strings.Cut(hash, ":")
			if !found || username == "" {
				return nil, fmt.Errorf("entry %d: expected username:hash format", i)
			}
			hash = rest
		}

		if !f.validate(hash) {
			return nil, fmt.Errorf("entry %d is not a valid %s hash", i, f.name)
		}

		if f.lowercase {
			hash = strings.ToLower(hash)
		}
		normalized[i] = hash
	}

	return normalized, nil
}
