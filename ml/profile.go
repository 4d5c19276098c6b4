package ml

import (
	"fmt"
	"strings"
)

type Sex uint8

const (
	SexFemale Sex = iota + 1
	SexMale
)

type Smoker uint8

const (
	SmokerNo Smoker = iota + 1
	SmokerYes
)

type Region uint8

const (
	RegionSouthwest Region = iota + 1
	RegionSoutheast
	RegionNortheast
	RegionNorthwest
)

// PatientProfile is one set of form inputs. Ranges are enforced by Validate.
type PatientProfile struct {
	Age      int     `json:"age" validate:"gte=18,lte=100"`
	Sex      Sex     `json:"sex" validate:"enum"`
	BMI      float64 `json:"bmi" validate:"gte=10,lte=50"`
	Children int     `json:"children" validate:"gte=0,lte=5"`
	Smoker   Smoker  `json:"smoker" validate:"enum"`
	Region   Region  `json:"region" validate:"enum"`
}

// DefaultProfile holds the values the form starts with.
func DefaultProfile() PatientProfile {
	return PatientProfile{
		Age:      25,
		Sex:      SexMale,
		BMI:      25.0,
		Children: 1,
		Smoker:   SmokerNo,
		Region:   RegionSouthwest,
	}
}

var sexNames = [...]string{SexFemale: "Female", SexMale: "Male"}

var smokerNames = [...]string{SmokerNo: "No", SmokerYes: "Yes"}

var regionNames = [...]string{
	RegionSouthwest: "southwest",
	RegionSoutheast: "southeast",
	RegionNortheast: "northeast",
	RegionNorthwest: "northwest",
}

func (s Sex) Valid() bool    { return s >= SexFemale && s <= SexMale }
func (s Smoker) Valid() bool { return s >= SmokerNo && s <= SmokerYes }
func (r Region) Valid() bool { return r >= RegionSouthwest && r <= RegionNorthwest }

func (s Sex) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Sex(%d)", uint8(s))
	}
	return sexNames[s]
}

func (s Smoker) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Smoker(%d)", uint8(s))
	}
	return smokerNames[s]
}

func (r Region) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Region(%d)", uint8(r))
	}
	return regionNames[r]
}

// ParseSex accepts Male/Female and the form's French labels Homme/Femme.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "homme", "m":
		return SexMale, nil
	case "female", "femme", "f":
		return SexFemale, nil
	}
	return 0, fmt.Errorf("unknown sex %q", s)
}

// ParseSmoker accepts Yes/No and Oui/Non.
func ParseSmoker(s string) (Smoker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "oui", "true":
		return SmokerYes, nil
	case "no", "non", "false":
		return SmokerNo, nil
	}
	return 0, fmt.Errorf("unknown smoker value %q", s)
}

func ParseRegion(s string) (Region, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r := RegionSouthwest; r <= RegionNorthwest; r++ {
		if regionNames[r] == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown region %q", s)
}

// Regions lists every region in declaration order.
func Regions() []Region {
	return []Region{RegionSouthwest, RegionSoutheast, RegionNortheast, RegionNorthwest}
}

func (s Sex) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid sex %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Sex) UnmarshalText(text []byte) error {
	v, err := ParseSex(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Smoker) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid smoker %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Smoker) UnmarshalText(text []byte) error {
	v, err := ParseSmoker(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (r Region) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid region %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Region) UnmarshalText(text []byte) error {
	v, err := ParseRegion(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
