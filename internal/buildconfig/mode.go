package buildconfig

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownMode is returned by ParseModeStrict for values other than
// "development" and "production".
var ErrUnknownMode = errors.New("unknown build mode")

// Mode selects one of the two build branches.
type Mode int

const (
	Production Mode = iota
	Development
)

const (
	developmentFlag = "development"
	productionFlag  = "production"
)

func (m Mode) String() string {
	if m == Development {
		return developmentFlag
	}
	return productionFlag
}

// IsDev reports whether m is the development branch.
func (m Mode) IsDev() bool {
	return m == Development
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseModeStrict(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode maps an environment flag to a Mode. Only the exact string
// "development" selects Development; every other value, including the
// empty string, selects Production.
func ParseMode(flag string) Mode {
	if flag == developmentFlag {
		return Development
	}
	return Production
}

// ParseModeStrict is ParseMode without the fallback: anything other than
// "development" or "production" is rejected with ErrUnknownMode.
func ParseModeStrict(flag string) (Mode, error) {
	switch flag {
	case developmentFlag:
		return Development, nil
	case productionFlag:
		return Production, nil
	default:
		return Production, fmt.Errorf("%w: %q (expected %q or %q)", ErrUnknownMode, flag, developmentFlag, productionFlag)
	}
}
