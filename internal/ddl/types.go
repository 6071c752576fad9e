package ddl

// Logical column types. Backend ddl packages map them to concrete SQL types
// through their MapType function.
const (
	TypeID        = "id" // surrogate key, generated by the database
	TypeInt       = "int"
	TypeFloat     = "float"
	TypeText      = "text"
	TypeKey       = "key" // short text that can be indexed
	TypeBool      = "bool"
	TypeTimestamp = "timestamp"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type (TypeInt, TypeText, ...) mapped per backend
//   - SQLType: explicit SQL type; overrides Type when set
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Unique: single-column UNIQUE constraint
//   - Default: raw default expression (e.g., 0, CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	Type       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Unique     bool
	Default    string
}

// ForeignKey references Columns of another table.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// TableDef holds the table name and an ordered list of columns plus table
// level constraints. The FQN may be dotted ("schema.table"); renderers quote
// each segment.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	ForeignKeys []ForeignKey
	// Checks are raw boolean SQL expressions over unquoted column names.
	Checks []string
}

// IndexDef is a secondary index on Table.
type IndexDef struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

// Schema is an ordered set of tables and the indexes built over them. Tables
// are created in order, so referenced tables come first.
type Schema struct {
	Tables  []TableDef
	Indexes []IndexDef
}

// TableNames returns the FQNs of s.Tables in creation order.
func (s Schema) TableNames() []string {
	out := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, t.FQN)
	}
	return out
}
