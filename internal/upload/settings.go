package upload

import (
	"fmt"
	"strings"
)

// PreselectSetting decides which existing files are checked in the
// deletion prompt before the user changes anything.
type PreselectSetting int

const (
	// PreselectSmart checks files that share a name with an upload.
	PreselectSmart PreselectSetting = iota
	PreselectAll
	PreselectNone
)

var preselectNames = map[PreselectSetting]string{
	PreselectSmart: "smart",
	PreselectAll:   "all",
	PreselectNone:  "none",
}

func (s PreselectSetting) String() string {
	return preselectNames[s]
}

func ParsePreselectSetting(value string) (PreselectSetting, error) {
	for setting, name := range preselectNames {
		if strings.EqualFold(value, name) {
			return setting, nil
		}
	}
	return 0, fmt.Errorf("unknown preselect setting %q, expected one of all, smart, none", value)
}

// Type is the kind of portal object files are uploaded to.
type Type int

const (
	TypeExercise Type = iota
	TypeFolder
)

var typeNames = map[Type]string{
	TypeExercise: "exercise",
	TypeFolder:   "folder",
}

func (t Type) String() string {
	return typeNames[t]
}

func ParseType(value string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(value, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown upload type %q, expected exercise or folder", value)
}
