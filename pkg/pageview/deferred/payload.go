package deferred

// Payload is the data carried by an Action. The concrete types below are the
// only implementations.
type Payload interface {
	isPayload()
}

// ScriptURL is the payload of LoadManualScript.
type ScriptURL struct {
	URL string `yaml:"url" json:"url"`
}

// Visibility is the payload of SetPageVisibility.
type Visibility struct {
	Visible bool `yaml:"visible" json:"visible"`
}

// MultipleSelection is the payload of PopupListSelectMultiple.
type MultipleSelection struct {
	Selected []bool `yaml:"selected" json:"selected"`
}

// SingleSelection is the payload of PopupListSelectSingle.
type SingleSelection struct {
	Index int `yaml:"index" json:"index"`
}

// DateTime is the payload of SetDateTimeInput.
type DateTime struct {
	Value string `yaml:"value" json:"value"`
}

// Color is the payload of SetColorInput.
type Color struct {
	Value string `yaml:"value" json:"value"`
}

// Cancelled is the payload of SelectionCancelled.
type Cancelled struct{}

// Focus is the payload of SetFocused.
type Focus struct {
	Focused bool `yaml:"focused" json:"focused"`
}

func (ScriptURL) isPayload()         {}
func (Visibility) isPayload()        {}
func (MultipleSelection) isPayload() {}
func (SingleSelection) isPayload()   {}
func (DateTime) isPayload()          {}
func (Color) isPayload()             {}
func (Cancelled) isPayload()         {}
func (Focus) isPayload()             {}

// KindOf returns the Kind a payload belongs to.
func KindOf(p Payload) (Kind, bool) {
	switch p.(type) {
	case ScriptURL:
		return LoadManualScript, true
	case Visibility:
		return SetPageVisibility, true
	case MultipleSelection:
		return PopupListSelectMultiple, true
	case SingleSelection:
		return PopupListSelectSingle, true
	case DateTime:
		return SetDateTimeInput, true
	case Color:
		return SetColorInput, true
	case Cancelled:
		return SelectionCancelled, true
	case Focus:
		return SetFocused, true
	}
	return 0, false
}
