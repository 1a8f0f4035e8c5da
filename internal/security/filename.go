package security

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

var (
	ErrEmptyName     = errors.New("file name is empty")
	ErrNameHasPath   = errors.New("file name must not contain a path")
	ErrReservedName  = errors.New("reserved file name")
	ErrLeadingHyphen = errors.New("file name cannot start with a hyphen")
)

var reservedNames = []string{
	"con", "prn", "aux", "nul",
	"com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9",
	"lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9",
}

// CheckOutputName validates a bare file name that is about to be written
// inside an output directory.
func CheckOutputName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrEmptyName
	case strings.ContainsAny(name, `/\`) || name == "." || name == "..":
		return ErrNameHasPath
	case strings.HasPrefix(name, "-"):
		return ErrLeadingHyphen
	case isReserved(name):
		return ErrReservedName
	}
	return nil
}

// SanitizeFilename turns a client supplied upload name into something safe to
// echo back in multipart headers and logs.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ':' || r == '/':
			return '-'
		case strings.ContainsRune(`*?"<>|`, r), unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	name = strings.TrimLeft(name, ".-")
	name = strings.TrimRight(name, ". ")

	if name == "" {
		return "image"
	}
	if isReserved(name) {
		name += "_"
	}
	return name
}

func isReserved(name string) bool {
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	return lo.Contains(reservedNames, stem)
}
