package transformations

import (
	"unicode/utf8"

	"github.com/krishkalaria12/snap-edit/apperrors"
)

// Config is the set of transformations requested for an image. Each member
// is present only when that transformation was asked for, and every leaf is
// a pointer so an unset field can be told apart from a zero value.
type Config struct {
	Restore          *bool          `json:"restore,omitempty" bson:"restore,omitempty"`
	RemoveBackground *bool          `json:"removeBackground,omitempty" bson:"removeBackground,omitempty"`
	FillBackground   *bool          `json:"fillBackground,omitempty" bson:"fillBackground,omitempty"`
	Remove           *RemoveParams  `json:"remove,omitempty" bson:"remove,omitempty"`
	Recolor          *RecolorParams `json:"recolor,omitempty" bson:"recolor,omitempty"`
}

type RemoveParams struct {
	Prompt       *string `json:"prompt,omitempty" bson:"prompt,omitempty"`
	RemoveShadow *bool   `json:"removeShadow,omitempty" bson:"removeShadow,omitempty"`
	Multiple     *bool   `json:"multiple,omitempty" bson:"multiple,omitempty"`
}

type RecolorParams struct {
	Prompt   *string `json:"prompt,omitempty" bson:"prompt,omitempty"`
	To       *string `json:"to,omitempty" bson:"to,omitempty"`
	Multiple *bool   `json:"multiple,omitempty" bson:"multiple,omitempty"`
}

func Bool(b bool) *bool       { return &b }
func String(s string) *string { return &s }

func (c Config) IsEmpty() bool {
	return c.Restore == nil && c.RemoveBackground == nil && c.FillBackground == nil &&
		c.Remove == nil && c.Recolor == nil
}

// Has reports whether the member for t is present.
func (c Config) Has(t Type) bool {
	switch t {
	case Restore:
		return c.Restore != nil
	case RemoveBackground:
		return c.RemoveBackground != nil
	case Fill:
		return c.FillBackground != nil
	case Remove:
		return c.Remove != nil
	case Recolor:
		return c.Recolor != nil
	}
	return false
}

// Validate checks that c is a usable configuration for a transformation of type t.
func (c Config) Validate(t Type) error {
	if _, ok := Lookup(t); !ok {
		return apperrors.Invalid("transformationType", "unknown transformation type")
	}
	if !c.Has(t) {
		return apperrors.Invalid("config", "missing parameters for "+string(t))
	}
	if c.Remove != nil {
		if err := checkLength("config.remove.prompt", c.Remove.Prompt); err != nil {
			return err
		}
	}
	if c.Recolor != nil {
		if err := checkLength("config.recolor.prompt", c.Recolor.Prompt); err != nil {
			return err
		}
		if err := checkLength("config.recolor.to", c.Recolor.To); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(field string, s *string) error {
	if s != nil && utf8.RuneCountInString(*s) > maxPromptLength {
		return apperrors.Invalid(field, "too long")
	}
	return nil
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	return Merge(c, nil)
}
