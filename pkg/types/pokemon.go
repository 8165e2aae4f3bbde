package types

import (
	"cmp"
	"slices"
)

// Number bounds. A valid number satisfies MinNumber <= n <= MaxNumber.
const (
	MinNumber = 1
	MaxNumber = 898
)

// Number identifies a pokemon. The zero value is not a valid Number; use
// NewNumber.
type Number uint16

// NewNumber validates n and returns it as a Number.
// Returns ErrInvalidNumber if n is outside [MinNumber, MaxNumber].
func NewNumber(n int) (Number, error) {
	if n < MinNumber || n > MaxNumber {
		return 0, ErrInvalidNumber
	}
	return Number(n), nil
}

// Int returns the number as a plain int.
func (n Number) Int() int { return int(n) }

// Compare returns -1, 0 or +1 depending on whether n sorts before, equal to,
// or after other.
func (n Number) Compare(other Number) int {
	return cmp.Compare(n, other)
}

// Name is a non-empty display name. It is stored as given, without case
// folding or trimming.
type Name string

// NewName returns ErrInvalidName for the empty string.
func NewName(s string) (Name, error) {
	if s == "" {
		return "", ErrInvalidName
	}
	return Name(s), nil
}

func (n Name) String() string { return string(n) }

// Type is one of the known pokemon types.
type Type string

// Known pokemon types.
const (
	TypeNormal   Type = "Normal"
	TypeFire     Type = "Fire"
	TypeWater    Type = "Water"
	TypeElectric Type = "Electric"
	TypeGrass    Type = "Grass"
	TypeIce      Type = "Ice"
	TypeFighting Type = "Fighting"
	TypePoison   Type = "Poison"
	TypeGround   Type = "Ground"
	TypeFlying   Type = "Flying"
	TypePsychic  Type = "Psychic"
	TypeBug      Type = "Bug"
	TypeRock     Type = "Rock"
	TypeGhost    Type = "Ghost"
	TypeDragon   Type = "Dragon"
	TypeDark     Type = "Dark"
	TypeSteel    Type = "Steel"
	TypeFairy    Type = "Fairy"
)

// validTypes is the closed set ParseType accepts. Matching is exact and
// case-sensitive.
var validTypes = map[Type]bool{
	TypeNormal:   true,
	TypeFire:     true,
	TypeWater:    true,
	TypeElectric: true,
	TypeGrass:    true,
	TypeIce:      true,
	TypeFighting: true,
	TypePoison:   true,
	TypeGround:   true,
	TypeFlying:   true,
	TypePsychic:  true,
	TypeBug:      true,
	TypeRock:     true,
	TypeGhost:    true,
	TypeDragon:   true,
	TypeDark:     true,
	TypeSteel:    true,
	TypeFairy:    true,
}

// ParseType returns the Type spelled exactly as s.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !validTypes[t] {
		return "", ErrInvalidTypes
	}
	return t, nil
}

// Types is an ordered, non-empty list of pokemon types.
type Types struct {
	list []Type
}

// NewTypes parses every element of raw. The list is rejected as a whole if it
// is empty or if any single element is not a known type.
func NewTypes(raw []string) (Types, error) {
	if len(raw) == 0 {
		return Types{}, ErrInvalidTypes
	}
	list := make([]Type, 0, len(raw))
	for _, s := range raw {
		t, err := ParseType(s)
		if err != nil {
			return Types{}, ErrInvalidTypes
		}
		list = append(list, t)
	}
	return Types{list: list}, nil
}

// Len returns the number of types.
func (t Types) Len() int { return len(t.list) }

// Strings returns the types in order. The returned slice is a copy.
func (t Types) Strings() []string {
	out := make([]string, len(t.list))
	for i, v := range t.list {
		out[i] = string(v)
	}
	return out
}

// Equal reports whether t and other hold the same types in the same order.
func (t Types) Equal(other Types) bool {
	return slices.Equal(t.list, other.list)
}

// Pokemon is a validated catalog entry.
type Pokemon struct {
	Number Number
	Name   Name
	Types  Types
}

// NewPokemon assembles a Pokemon from validated parts.
func NewPokemon(number Number, name Name, types Types) Pokemon {
	return Pokemon{Number: number, Name: name, Types: types}
}

// ParsePokemon runs the three constructors over raw values and assembles the
// result. Backends use it to re-validate rows read from external storage.
func ParsePokemon(number int, name string, types []string) (Pokemon, error) {
	n, err := NewNumber(number)
	if err != nil {
		return Pokemon{}, err
	}
	nm, err := NewName(name)
	if err != nil {
		return Pokemon{}, err
	}
	ts, err := NewTypes(types)
	if err != nil {
		return Pokemon{}, err
	}
	return NewPokemon(n, nm, ts), nil
}

// Equal reports whether p and other carry the same number, name and types.
func (p Pokemon) Equal(other Pokemon) bool {
	return p.Number == other.Number && p.Name == other.Name && p.Types.Equal(other.Types)
}

// SortByNumber sorts pokemons in place by ascending Number.
func SortByNumber(pokemons []Pokemon) {
	slices.SortFunc(pokemons, func(a, b Pokemon) int {
		return a.Number.Compare(b.Number)
	})
}
