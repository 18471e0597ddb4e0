package meshfile

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// Platform selects the byte order and layout of a written mesh.
type Platform uint8

const (
	PC Platform = iota
	PS3
	Xbox360
)

var platformNames = []string{"pc", "ps3", "xbox360"}

func (p Platform) String() string {
	if int(p) < len(platformNames) {
		return platformNames[p]
	}
	return "unknown"
}

// ByteOrder returns the platform's native byte order.
func (p Platform) ByteOrder() binary.ByteOrder {
	if p == PS3 || p == Xbox360 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (p Platform) valid() bool {
	return int(p) < len(platformNames)
}

// ParsePlatform parses a platform name such as "pc" or "ps3".
func ParsePlatform(s string) (Platform, error) {
	for i, n := range platformNames {
		if strings.EqualFold(s, n) {
			return Platform(i), nil
		}
	}
	return PC, errors.Wrapf(ErrUnknownPlatform, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(b []byte) error {
	v, err := ParsePlatform(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
