package transformations

import "github.com/krishkalaria12/snap-edit/apperrors"

// Type identifies which AI edit a transformation form performs.
type Type string

const (
	Restore          Type = "restore"
	RemoveBackground Type = "removeBackground"
	Fill             Type = "fill"
	Remove           Type = "remove"
	Recolor          Type = "recolor"
)

// CreditFee is the balance delta charged for every applied transformation.
const CreditFee = -1

const maxPromptLength = 200

// Info describes a transformation type for the editing form.
type Info struct {
	Type     Type   `json:"type"`
	Title    string `json:"title"`
	SubTitle string `json:"subTitle"`
	Icon     string `json:"icon"`
}

var types = map[Type]Info{
	Restore:          {Type: Restore, Title: "Restore Image", SubTitle: "Refine images by removing noise and imperfections", Icon: "image.svg"},
	RemoveBackground: {Type: RemoveBackground, Title: "Background Remove", SubTitle: "Removes the background of the image using AI", Icon: "camera.svg"},
	Fill:             {Type: Fill, Title: "Generative Fill", SubTitle: "Enhance an image's dimensions using AI outpainting", Icon: "stars.svg"},
	Remove:           {Type: Remove, Title: "Object Remove", SubTitle: "Identify and eliminate objects from images", Icon: "scan.svg"},
	Recolor:          {Type: Recolor, Title: "Object Recolor", SubTitle: "Identify and recolor objects from the image", Icon: "filter.svg"},
}

// ParseType validates a transformation type name.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := types[t]; !ok {
		return "", apperrors.Invalid("transformationType", "unknown transformation type "+s)
	}
	return t, nil
}

func Lookup(t Type) (Info, bool) {
	info, ok := types[t]
	return info, ok
}

// DefaultConfig returns the configuration a fresh form of type t starts from.
func DefaultConfig(t Type) Config {
	switch t {
	case Restore:
		return Config{Restore: Bool(true)}
	case RemoveBackground:
		return Config{RemoveBackground: Bool(true)}
	case Fill:
		return Config{FillBackground: Bool(true)}
	case Remove:
		return Config{Remove: &RemoveParams{Prompt: String(""), RemoveShadow: Bool(true), Multiple: Bool(true)}}
	case Recolor:
		return Config{Recolor: &RecolorParams{Prompt: String(""), To: String(""), Multiple: Bool(true)}}
	}
	return Config{}
}

// AspectRatio is one of the fixed output sizes offered by generative fill.
type AspectRatio struct {
	Key    string `json:"aspectRatio"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var aspectRatios = map[string]AspectRatio{
	"1:1":  {Key: "1:1", Label: "Square (1:1)", Width: 1000, Height: 1000},
	"3:4":  {Key: "3:4", Label: "Standard Portrait (3:4)", Width: 1000, Height: 1334},
	"9:16": {Key: "9:16", Label: "Phone Portrait (9:16)", Width: 1000, Height: 1778},
}

func LookupAspectRatio(key string) (AspectRatio, bool) {
	ar, ok := aspectRatios[key]
	return ar, ok
}

// Plan is a credit package shown on the credits page.
type Plan struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Price      int         `json:"price"`
	Credits    int         `json:"credits"`
	Inclusions []Inclusion `json:"inclusions"`
}

type Inclusion struct {
	Label      string `json:"label"`
	IsIncluded bool   `json:"isIncluded"`
}

var plans = []Plan{
	{ID: 1, Name: "Free", Price: 0, Credits: 20, Inclusions: []Inclusion{
		{Label: "20 Free Credits", IsIncluded: true},
		{Label: "Basic Access to Services", IsIncluded: true},
		{Label: "Priority Customer Support", IsIncluded: false},
		{Label: "Priority Updates", IsIncluded: false},
	}},
	{ID: 2, Name: "Pro Package", Price: 40, Credits: 120, Inclusions: []Inclusion{
		{Label: "120 Credits", IsIncluded: true},
		{Label: "Full Access to Services", IsIncluded: true},
		{Label: "Priority Customer Support", IsIncluded: true},
		{Label: "Priority Updates", IsIncluded: false},
	}},
	{ID: 3, Name: "Premium Package", Price: 199, Credits: 2000, Inclusions: []Inclusion{
		{Label: "2000 Credits", IsIncluded: true},
		{Label: "Full Access to Services", IsIncluded: true},
		{Label: "Priority Customer Support", IsIncluded: true},
		{Label: "Priority Updates", IsIncluded: true},
	}},
}

func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}
