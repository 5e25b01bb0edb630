package core

import "strings"

// OtherOption is the dropdown entry that switches a field to free text.
const (
	OtherOption      = "Other"
	OtherOptionHindi = "अन्य"
)

// CategoryOptions are the beneficiary social categories offered by the form.
var CategoryOptions = []string{"General", "OBC", "SC", "ST"}

// Choice is a dropdown answer: either one of the known options or custom text.
type Choice struct {
	value  string
	custom bool
}

func Known(value string) Choice { return Choice{value: value} }

func Custom(text string) Choice { return Choice{value: text, custom: true} }

func (c Choice) IsCustom() bool { return c.custom }

// Value is the text submitted upstream, whichever variant holds it.
func (c Choice) Value() string { return c.value }

// ResolveChoice turns the raw form pair (selected option, "other" text box)
// into a Choice. Selecting the Other entry, or an option outside the known
// list, yields Custom.
func ResolveChoice(selected, other string, options []string) Choice {
	selected = strings.TrimSpace(selected)
	if selected == OtherOption || selected == OtherOptionHindi {
		return Custom(strings.TrimSpace(other))
	}
	for _, o := range options {
		if o == selected {
			return Known(selected)
		}
	}
	return Custom(selected)
}
