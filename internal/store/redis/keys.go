package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixLease is the prefix for run lease keys
	KeyPrefixLease = "tickrenew:lease:"
	// KeyPrefixOutcome is the prefix for last-outcome hashes
	KeyPrefixOutcome = "tickrenew:outcome:"
)

// LeaseKey returns the lease key for a site profile
func LeaseKey(profile string) string {
	return KeyPrefixLease + keyPart(profile)
}

// OutcomeKey returns the last-outcome key for a site profile
func OutcomeKey(profile string) string {
	return KeyPrefixOutcome + keyPart(profile)
}

// ExtractProfile extracts the profile part from a lease or outcome key
func ExtractProfile(key string) (string, error) {
	for _, prefix := range []string{KeyPrefixLease, KeyPrefixOutcome} {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			return rest, nil
		}
	}
	return "", fmt.Errorf("invalid tickrenew key: %s", key)
}

// keyPart lowercases a profile name and replaces whitespace so it reads as one key segment.
func keyPart(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "default"
	}
	return strings.Join(strings.Fields(name), "-")
}
