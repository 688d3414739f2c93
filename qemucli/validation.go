package qemucli

import (
	"fmt"
	"strings"
	"unicode"
)

// CheckPropValue reports whether s survives QEMU property list parsing
// unchanged. QEMU reads "," as an item separator.
func CheckPropValue(s string) error {
	if strings.Contains(s, ",") {
		return fmt.Errorf("commas are not allowed")
	}

	if strings.IndexFunc(s, unicode.IsControl) != -1 {
		return fmt.Errorf("control characters are not allowed")
	}

	return nil
}
