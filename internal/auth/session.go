package auth

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	tokenTenantPattern   = regexp.MustCompile(`tenant:(.*)username`)
	tokenUsernamePattern = regexp.MustCompile(`username:(.*)expiration`)
)

// SessionInfo is the identity carried inside a session token.
type SessionInfo struct {
	Tenant   string
	Username string
}

// ParseSessionToken extracts the tenant and username encoded in token.
func ParseSessionToken(token string) (*SessionInfo, error) {
	decoded, err := decodeToken(token)
	if err != nil {
		return nil, err
	}

	info := &SessionInfo{}

	if match := tokenTenantPattern.FindStringSubmatch(decoded); match != nil {
		info.Tenant = trimClaim(match[1])
	}

	if match := tokenUsernamePattern.FindStringSubmatch(decoded); match != nil {
		info.Username = trimClaim(match[1])
	}

	if info.Username == "" {
		return nil, fmt.Errorf("%w: no username claim", ErrMalformedToken)
	}

	return info, nil
}

func decodeToken(token string) (string, error) {
	token = strings.TrimSpace(token)

	for _, encoding := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		decoded, err := encoding.DecodeString(token)
		if err == nil {
			return string(decoded), nil
		}
	}

	return "", fmt.Errorf("%w: not base64", ErrMalformedToken)
}

func trimClaim(value string) string {
	return strings.TrimFunc(value, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || unicode.IsControl(r)
	})
}

// DisplayName renders the local part of a username with an upper-case initial.
func DisplayName(username string) string {
	name, _, _ := strings.Cut(username, "@")
	if name == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(name)

	return string(unicode.ToUpper(first)) + name[size:]
}
