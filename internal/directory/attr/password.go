package attr

import (
	"encoding/binary"
	"unicode/utf16"
)

// EncodePassword renders a password for the unicodePwd attribute: the value
// wrapped in double quotes and encoded as UTF-16LE. This is the directory's
// wire contract for password writes.
func EncodePassword(password string) []byte {
	quoted := `"` + password + `"`
	units := utf16.Encode([]rune(quoted))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}
