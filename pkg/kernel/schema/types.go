// Package schema defines the immutable install-module document types
// consumed by the wizard engine.
package schema

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module is the top-level, fully parsed install document.
type Module struct {
	Name          string      `yaml:"name"                     json:"name"`
	Image         HeaderImage `yaml:"image,omitempty"          json:"image,omitempty"`
	Dependencies  *Dependency `yaml:"dependencies,omitempty"   json:"dependencies,omitempty"`
	RequiredFiles []File      `yaml:"required_files,omitempty" json:"required_files,omitempty"`
	StepOrder     Order       `yaml:"step_order,omitempty"     json:"step_order,omitempty"`
	Steps         []Step      `yaml:"steps,omitempty"          json:"steps,omitempty"`
}

// Info is the metadata record shipped next to the module document.
type Info struct {
	Name    string `yaml:"name,omitempty"    json:"name,omitempty"`
	Version string `yaml:"version,omitempty" json:"version,omitempty"`
	Author  string `yaml:"author,omitempty"  json:"author,omitempty"`
	Website string `yaml:"website,omitempty" json:"website,omitempty"`
}

// HeaderImage describes the module banner.
type HeaderImage struct {
	Path      string `yaml:"path,omitempty"       json:"path,omitempty"`
	ShowImage bool   `yaml:"show_image,omitempty" json:"show_image,omitempty"`
	ShowFade  bool   `yaml:"show_fade,omitempty"  json:"show_fade,omitempty"`
	Height    int    `yaml:"height,omitempty"     json:"height,omitempty"`
}

// File is a single copy instruction.
type File struct {
	Source      string `yaml:"source"             json:"source"`
	Destination string `yaml:"destination"        json:"destination"`
	Priority    int    `yaml:"priority,omitempty" json:"priority,omitempty"`
}

// ---------------------------------------------------------------------------
// Steps, groups, options
// ---------------------------------------------------------------------------

// Step is one page of the wizard.
type Step struct {
	Name       string      `yaml:"name"                  json:"name"`
	Visible    *Dependency `yaml:"visible,omitempty"     json:"visible,omitempty"`
	GroupOrder Order       `yaml:"group_order,omitempty" json:"group_order,omitempty"`
	Groups     []Group     `yaml:"groups,omitempty"      json:"groups,omitempty"`
}

// GroupType constrains how many options of a group may be selected.
type GroupType string

const (
	SelectAny        GroupType = "SelectAny"
	SelectAll        GroupType = "SelectAll"
	SelectExactlyOne GroupType = "SelectExactlyOne"
	SelectAtMostOne  GroupType = "SelectAtMostOne"
	SelectAtLeastOne GroupType = "SelectAtLeastOne"
)

// RequiresSelection reports whether the group must always hold a selection.
func (t GroupType) RequiresSelection() bool {
	return t == SelectExactlyOne || t == SelectAtLeastOne
}

// Group is a named set of options sharing a cardinality rule.
type Group struct {
	Name        string    `yaml:"name"                   json:"name"`
	Type        GroupType `yaml:"type"                   json:"type"`
	OptionOrder Order     `yaml:"option_order,omitempty" json:"option_order,omitempty"`
	Options     []Option  `yaml:"options,omitempty"      json:"options,omitempty"`
}

// Option is a selectable entry of a group.
type Option struct {
	Name        string             `yaml:"name"                  json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Image       string             `yaml:"image,omitempty"       json:"image,omitempty"`
	Flags       []Flag             `yaml:"flags,omitempty"       json:"flags,omitempty"`
	Files       []File             `yaml:"files,omitempty"       json:"files,omitempty"`
	Category    CategoryDescriptor `yaml:"category"              json:"category"`
}

// Flag is a name/value pair set while its option is selected.
type Flag struct {
	Name  string `yaml:"name"  json:"name"`
	Value string `yaml:"value" json:"value"`
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// Category is the resolved importance of an option.
type Category string

const (
	CategoryRequired      Category = "Required"
	CategoryOptional      Category = "Optional"
	CategoryRecommended   Category = "Recommended"
	CategoryNotUsable     Category = "NotUsable"
	CategoryCouldBeUsable Category = "CouldBeUsable"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRequired, CategoryOptional, CategoryRecommended, CategoryNotUsable, CategoryCouldBeUsable:
		return true
	}
	return false
}

// CategoryDescriptor resolves an option's category: the first rule whose
// condition holds wins, Default applies otherwise.
type CategoryDescriptor struct {
	Default Category       `yaml:"default"         json:"default"`
	Rules   []CategoryRule `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// CategoryRule maps a condition to a category.
type CategoryRule struct {
	When     Dependency `yaml:"when"     json:"when"`
	Category Category   `yaml:"category" json:"category"`
}

// ---------------------------------------------------------------------------
// Dependencies
// ---------------------------------------------------------------------------

// Operator combines the tests of a Dependency.
type Operator string

const (
	OperatorAnd Operator = "And"
	OperatorOr  Operator = "Or"
)

// FileState is the host state of a file, as reported by the file-state query.
type FileState string

const (
	FileMissing  FileState = "Missing"
	FileInactive FileState = "Inactive"
	FileActive   FileState = "Active"
	FileUnknown  FileState = "Unknown"
)

// Dependency is a boolean combinator over file-state and flag tests.
type Dependency struct {
	Operator Operator         `yaml:"operator,omitempty" json:"operator,omitempty"`
	Files    []FileDependency `yaml:"files,omitempty"    json:"files,omitempty"`
	Flags    []FlagDependency `yaml:"flags,omitempty"    json:"flags,omitempty"`
}

// FileDependency holds when the host reports State for Path.
type FileDependency struct {
	Path  string    `yaml:"path"  json:"path"`
	State FileState `yaml:"state" json:"state"`
}

// FlagDependency holds when the flag named Name currently equals Value.
type FlagDependency struct {
	Name  string `yaml:"name"  json:"name"`
	Value string `yaml:"value" json:"value"`
}
