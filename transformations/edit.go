package transformations

import "github.com/krishkalaria12/snap-edit/apperrors"

// Field is a text input on the transformation form that feeds the config.
type Field string

const (
	FieldPrompt Field = "prompt"
	FieldColor  Field = "color"
)

// FieldPatch builds the single-leaf patch a form edit contributes to the
// pending configuration of a transformation of type t.
func FieldPatch(t Type, field Field, value string) (Config, error) {
	switch {
	case t == Remove && field == FieldPrompt:
		return Config{Remove: &RemoveParams{Prompt: String(value)}}, nil
	case t == Recolor && field == FieldPrompt:
		return Config{Recolor: &RecolorParams{Prompt: String(value)}}, nil
	case t == Recolor && field == FieldColor:
		return Config{Recolor: &RecolorParams{To: String(value)}}, nil
	}
	return Config{}, apperrors.Invalid(string(field), "not editable for "+string(t))
}
