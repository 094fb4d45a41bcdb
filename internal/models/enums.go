package models

import "fmt"

// Sector is the economic sector an SME operates in.
type Sector string

const (
	SectorManufacturing Sector = "manufacturing"
	SectorServices      Sector = "services"
	SectorAgribusiness  Sector = "agribusiness"
	SectorOther         Sector = "other"
)

// Sectors lists every sector in canonical sampling order.
var Sectors = []Sector{SectorManufacturing, SectorServices, SectorAgribusiness, SectorOther}

// Valid returns true if the sector is a recognized value.
func (s Sector) Valid() bool {
	switch s {
	case SectorManufacturing, SectorServices, SectorAgribusiness, SectorOther:
		return true
	}
	return false
}

// SizeCategory is the ordered enterprise size class. The zero value is micro,
// so comparisons with < and >= follow the ordinal scale.
type SizeCategory int

const (
	SizeMicro SizeCategory = iota
	SizeSmall
	SizeMedium
)

// SizeCategories lists every size category in ascending order.
var SizeCategories = []SizeCategory{SizeMicro, SizeSmall, SizeMedium}

// String returns the configuration name of the size category.
func (s SizeCategory) String() string {
	switch s {
	case SizeMicro:
		return "micro"
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	default:
		return fmt.Sprintf("size(%d)", int(s))
	}
}

// Valid returns true if the size category is a recognized value.
func (s SizeCategory) Valid() bool {
	return s >= SizeMicro && s <= SizeMedium
}

// ParseSizeCategory maps a configuration name to its SizeCategory.
func ParseSizeCategory(name string) (SizeCategory, error) {
	for _, s := range SizeCategories {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown size category %q (valid: micro, small, medium)", name)
}

// MarshalText encodes the size category by name.
func (s SizeCategory) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid size category %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a size category name.
func (s *SizeCategory) UnmarshalText(text []byte) error {
	parsed, err := ParseSizeCategory(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Formality is the registration status of an SME.
type Formality string

const (
	Informal Formality = "informal"
	Formal   Formality = "formal"
)

// Formalities lists every formality status in canonical sampling order.
var Formalities = []Formality{Informal, Formal}

// Valid returns true if the formality is a recognized value.
func (f Formality) Valid() bool {
	return f == Informal || f == Formal
}

// Location is the urban/rural placement of an SME.
type Location string

const (
	Urban Location = "urban"
	Rural Location = "rural"
)

// Locations lists every location in canonical sampling order.
var Locations = []Location{Urban, Rural}

// Valid returns true if the location is a recognized value.
func (l Location) Valid() bool {
	return l == Urban || l == Rural
}

// Gender is the owner's gender as recorded by the population generator.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)
