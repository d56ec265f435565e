package domain

// Template is a prebuilt canvas a user can start from.
type Template struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	Category    string       `json:"category" yaml:"category"`
	Blocks      []Block      `json:"blocks" yaml:"blocks"`
	Connections []Connection `json:"connections" yaml:"connections"`
	Builtin     bool         `json:"builtin" yaml:"-"`
}
