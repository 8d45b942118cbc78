package models

// ModifiedFlag classifies whether the reviewer changed the generated text.
type ModifiedFlag string

const (
	FlagNoChange ModifiedFlag = "No Change"
	FlagChanged  ModifiedFlag = "Changed"
)

// Schema names the columns a deployment works with. Required lists the
// columns that must be present in the input file; the remaining fields map
// the roles the session needs onto concrete column names. Annotated and Flag
// are owned by this tool and are appended to the output when missing.
type Schema struct {
	Required  []string `yaml:"required"`
	Context   string   `yaml:"context_column"`
	Title     string   `yaml:"title_column"`
	Style     string   `yaml:"style_column"`
	Starter   string   `yaml:"starter_column"`
	Generated string   `yaml:"generated_column"`
	Annotated string   `yaml:"annotated_column"`
	Flag      string   `yaml:"flag_column"`
}

// ConversationSchema is the wiki-article profile: full generation context
// (title, style, starter) alongside the source text.
func ConversationSchema() Schema {
	return Schema{
		Required:  []string{"title", "text", "selected_style", "selected_starter", "generated_conversation"},
		Context:   "text",
		Title:     "title",
		Style:     "selected_style",
		Starter:   "selected_starter",
		Generated: "generated_conversation",
		Annotated: "generated_conversation_annotated",
		Flag:      "modified_flag",
	}
}

// DialogSchema is the translation-review profile: a source dialogue and the
// generated candidate, nothing else.
func DialogSchema() Schema {
	return Schema{
		Required:  []string{"dialog", "generated_conversation"},
		Context:   "dialog",
		Generated: "generated_conversation",
		Annotated: "generated_conversation_annotated",
		Flag:      "modified_flag",
	}
}

// Dataset is the full ordered table for one session. Row count and order are
// fixed after load; only cell values change. Cells are stored as strings the
// way they appear in the tabular file, so an empty annotated cell is the
// "not yet annotated" marker.
type Dataset struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// NewDataset builds a dataset from a normalized header and data rows. Short
// rows are padded to the header width so every cell is addressable.
func NewDataset(header []string, rows [][]string) *Dataset {
	d := &Dataset{
		header: append([]string(nil), header...),
		rows:   make([][]string, len(rows)),
	}
	for i, row := range rows {
		padded := make([]string, len(header))
		copy(padded, row)
		d.rows[i] = padded
	}
	d.reindex()
	return d
}

func (d *Dataset) reindex() {
	d.index = make(map[string]int, len(d.header))
	for i, name := range d.header {
		d.index[name] = i
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Header returns the column names in file order.
func (d *Dataset) Header() []string { return append([]string(nil), d.header...) }

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// AddColumn appends an empty column. No-op when the column already exists.
func (d *Dataset) AddColumn(name string) {
	if d.HasColumn(name) {
		return
	}
	d.header = append(d.header, name)
	for i := range d.rows {
		d.rows[i] = append(d.rows[i], "")
	}
	d.reindex()
}

// Cell returns the value at (row, column). Missing columns read as empty,
// matching how a tabular file treats an absent value.
func (d *Dataset) Cell(row int, column string) string {
	col, ok := d.index[column]
	if !ok || row < 0 || row >= len(d.rows) {
		return ""
	}
	return d.rows[row][col]
}

// SetCell writes the value at (row, column), creating the column if needed.
func (d *Dataset) SetCell(row int, column, value string) {
	if row < 0 || row >= len(d.rows) {
		return
	}
	if !d.HasColumn(column) {
		d.AddColumn(column)
	}
	d.rows[row][d.index[column]] = value
}

// Row returns a copy of the row's cells in header order.
func (d *Dataset) Row(row int) []string {
	if row < 0 || row >= len(d.rows) {
		return nil
	}
	return append([]string(nil), d.rows[row]...)
}

// RecordView is what a front end renders for the current row.
type RecordView struct {
	Row       int      `json:"row"` // 1-based for display
	Total     int      `json:"total"`
	Done      int      `json:"done"`
	Title     string   `json:"title,omitempty"`
	Context   string   `json:"context"`
	Style     string   `json:"style,omitempty"`
	Starter   string   `json:"starter,omitempty"`
	Reference string   `json:"reference"`
	Annotated string   `json:"annotated"`
	Candidate string   `json:"candidate,omitempty"`
	Flag      string   `json:"flag,omitempty"`
	Status    string   `json:"status"`
	Completed bool     `json:"completed"`
}

// SaveResult reports the outcome of persisting one annotation.
type SaveResult struct {
	Record    RecordView   `json:"record"`
	Flag      ModifiedFlag `json:"flag"`
	Done      int          `json:"done"`
	Total     int          `json:"total"`
	Status    string       `json:"status"`
	Completed bool         `json:"completed"`
}

// GenerationRequest carries the current row's fields to a provider.
type GenerationRequest struct {
	Context string
	Title   string
	Style   string
	Starter string
}

// SaveRequest is the save-annotation API payload.
type SaveRequest struct {
	Annotated string `json:"annotated" binding:"required"`
}

// HighlightRequest selects a conversation turn to locate in the context.
type HighlightRequest struct {
	Turn   int    `json:"turn"`
	Source string `json:"source"` // "reference" or "candidate"
	Theme  string `json:"theme"`  // "light" or "dark"
}
