package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/acarl005/stripansi"
)

func ClearUnprintableChars(s string, allowNewlines bool) string {
	// This will remove ANSI color codes.
	s = stripansi.Strip(s)

	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || (allowNewlines && r == '\n') {
			return r
		}
		return -1
	}, s)
}

var mountOptionsRegexp = regexp.MustCompile(`^([a-zA-Z0-9_]+(=[a-zA-Z0-9]+)?)(,[a-zA-Z0-9_]+(=[a-zA-Z0-9]+)?)*$`)

func ValidateMountOptions(s string) bool {
	return mountOptionsRegexp.MatchString(s)
}

var unixUsernameRegexp = regexp.MustCompile(`^[a-z_]([a-z0-9_-]{0,31}|[a-z0-9_-]{0,30}\$)$`)

func ValidateUnixUsername(s string) bool {
	return unixUsernameRegexp.MatchString(s)
}

var unixIDRegexp = regexp.MustCompile(`^[0-9]{1,10}$`)

// ValidateUnixOwner accepts either a user/group name or a numeric ID.
func ValidateUnixOwner(s string) bool {
	return unixIDRegexp.MatchString(s) || ValidateUnixUsername(s)
}

func IsNumericUnixID(s string) bool {
	return unixIDRegexp.MatchString(s)
}

// ValidateGuestPath checks that s is an absolute Linux path that is safe
// to pass to guest shell commands once quoted. The root directory is
// rejected as a mount point.
func ValidateGuestPath(s string) bool {
	if !strings.HasPrefix(s, "/") || s == "/" {
		return false
	}

	return !strings.ContainsAny(s, "\x00\n\r")
}

var machineNameRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// ValidateMachineName checks that s can be used as a directory name.
func ValidateMachineName(s string) bool {
	return machineNameRegexp.MatchString(s)
}
