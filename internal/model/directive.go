package model

type DirectiveKind string

const (
	DirectiveText    DirectiveKind = "text"
	DirectiveButtons DirectiveKind = "buttons"
	DirectiveList    DirectiveKind = "list"
)

type Button struct {
	ID    string
	Title string
}

type ListRow struct {
	ID          string
	Title       string
	Description string
}

type ListSection struct {
	Title string
	Rows  []ListRow
}

// Directive is one outbound message the engine wants delivered.
type Directive struct {
	Kind DirectiveKind

	Header string
	Body   string
	Footer string

	Buttons    []Button
	ButtonText string
	Sections   []ListSection
}
