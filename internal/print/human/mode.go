package human

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Mode represents unix permission bits.
//
// Values are parsed and formatted in octal, with or without a leading zero
// (e.g. "644", "0644" or "0o644"). Only the permission bits and the setuid,
// setgid and sticky bits may be set.
type Mode fs.FileMode

const modeMask = 07777

func ParseMode(s string) (Mode, error) {
	t := strings.TrimPrefix(strings.TrimPrefix(s, "0o"), "0O")
	if t == "" {
		return 0, fmt.Errorf("malformed mode representation: %q", s)
	}
	m, err := strconv.ParseUint(t, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed mode representation: %q: %w", s, err)
	}
	if m&^modeMask != 0 {
		return 0, fmt.Errorf("mode out of range: %q", s)
	}
	return Mode(m), nil
}

// ModeOf returns the permission bits of mode, including the setuid, setgid
// and sticky bits.
func ModeOf(mode fs.FileMode) Mode {
	m := Mode(mode & fs.ModePerm)
	if mode&fs.ModeSetuid != 0 {
		m |= 04000
	}
	if mode&fs.ModeSetgid != 0 {
		m |= 02000
	}
	if mode&fs.ModeSticky != 0 {
		m |= 01000
	}
	return m
}

// FileMode converts m to a fs.FileMode, mapping the setuid, setgid and sticky
// bits to their fs.FileMode equivalents.
func (m Mode) FileMode() fs.FileMode {
	mode := fs.FileMode(m) & fs.ModePerm
	if m&04000 != 0 {
		mode |= fs.ModeSetuid
	}
	if m&02000 != 0 {
		mode |= fs.ModeSetgid
	}
	if m&01000 != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

func (m Mode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

func (m Mode) GoString() string {
	return fmt.Sprintf("human.Mode(%#o)", uint32(m))
}

func (m Mode) Get() any {
	return m.FileMode()
}

func (m *Mode) Set(s string) error {
	p, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = p
	return nil
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return m.Set(s)
}

func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *Mode) UnmarshalYAML(y *yaml.Node) error {
	var s string
	if err := y.Decode(&s); err != nil {
		return err
	}
	return m.Set(s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(t []byte) error {
	return m.Set(string(t))
}

var (
	_ fmt.GoStringer = Mode(0)
	_ fmt.Stringer   = Mode(0)

	_ json.Marshaler   = Mode(0)
	_ json.Unmarshaler = (*Mode)(nil)

	_ yaml.Marshaler   = Mode(0)
	_ yaml.Unmarshaler = (*Mode)(nil)

	_ encoding.TextMarshaler   = Mode(0)
	_ encoding.TextUnmarshaler = (*Mode)(nil)

	_ flag.Getter = (*Mode)(nil)
)
