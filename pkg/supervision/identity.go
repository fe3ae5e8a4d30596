package supervision

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DirPrefix is the literal prefix of a session directory name
const DirPrefix = "supo"

// Identity identifies one supervision session
type Identity struct {
	Ordinal int    `json:"ordinal"`
	Subject string `json:"subject"`
}

// String returns the directory-style form of the identity
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s%d", id.Subject, DirPrefix, id.Ordinal)
}

// Label returns the portal link label for this session
func (id Identity) Label() string {
	return SessionLabel(id.Ordinal)
}

// Resolve derives the session identity from a directory shaped <subject>/supo<N>.
// The subject is the parent directory name, case preserved.
func Resolve(dir string) (Identity, error) {
	clean := filepath.Clean(dir)

	base := filepath.Base(clean)
	if !strings.HasPrefix(base, DirPrefix) {
		return Identity{}, fmt.Errorf("%w: %q does not start with %q", ErrInvalidLayout, base, DirPrefix)
	}

	digits := strings.TrimPrefix(base, DirPrefix)
	if digits == "" || strings.ContainsAny(digits, "+-") {
		return Identity{}, fmt.Errorf("%w: %q has no session number", ErrInvalidLayout, base)
	}
	ordinal, err := strconv.Atoi(digits)
	if err != nil || ordinal < 0 {
		return Identity{}, fmt.Errorf("%w: %q is not a session number", ErrInvalidLayout, digits)
	}

	parent := filepath.Dir(clean)
	subject := filepath.Base(parent)
	if parent == clean || subject == "." || subject == string(filepath.Separator) || subject == "" {
		return Identity{}, fmt.Errorf("%w: %q has no subject directory", ErrInvalidLayout, clean)
	}

	return Identity{
		Ordinal: ordinal,
		Subject: subject,
	}, nil
}
