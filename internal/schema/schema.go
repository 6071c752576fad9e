// Package schema declares the persisted tables of the country store in the
// dialect-neutral ddl model. Backends render it through their ddl packages.
package schema

import "statesdb/internal/ddl"

// Table names.
const (
	Countries        = "countries"
	Languages        = "languages"
	CountryLanguages = "country_languages"
	Borders          = "borders"
)

// CountryColumns lists the countries columns in the order the loader writes
// and the query layer reads them (id first).
var CountryColumns = []string{
	"id", "name", "name_key", "capital", "population", "area_km2", "density",
	"government_type", "timezones", "source_url", "source_hash", "last_scraped", "stale",
}

// Store returns the full schema. Tables are listed so that every foreign key
// references a table created earlier.
func Store() ddl.Schema {
	return ddl.Schema{
		Tables: []ddl.TableDef{
			{
				FQN: Countries,
				Columns: []ddl.ColumnDef{
					{Name: "id", Type: ddl.TypeID, PrimaryKey: true},
					{Name: "name", Type: ddl.TypeText},
					{Name: "name_key", Type: ddl.TypeKey, Unique: true},
					{Name: "capital", Type: ddl.TypeText, Nullable: true},
					{Name: "population", Type: ddl.TypeInt, Nullable: true},
					{Name: "area_km2", Type: ddl.TypeFloat, Nullable: true},
					{Name: "density", Type: ddl.TypeFloat, Nullable: true},
					{Name: "government_type", Type: ddl.TypeKey, Nullable: true},
					{Name: "timezones", Type: ddl.TypeText},
					{Name: "source_url", Type: ddl.TypeKey},
					{Name: "source_hash", Type: ddl.TypeText},
					{Name: "last_scraped", Type: ddl.TypeTimestamp},
					{Name: "stale", Type: ddl.TypeBool},
				},
				Checks: []string{
					"population IS NULL OR population >= 0",
					"area_km2 IS NULL OR area_km2 >= 0",
					"density IS NULL OR density >= 0",
				},
			},
			{
				FQN: Languages,
				Columns: []ddl.ColumnDef{
					{Name: "id", Type: ddl.TypeID, PrimaryKey: true},
					{Name: "name", Type: ddl.TypeText},
					{Name: "name_key", Type: ddl.TypeKey, Unique: true},
				},
			},
			{
				FQN: CountryLanguages,
				Columns: []ddl.ColumnDef{
					{Name: "country_id", Type: ddl.TypeInt, PrimaryKey: true},
					{Name: "language_id", Type: ddl.TypeInt, PrimaryKey: true},
				},
				ForeignKeys: []ddl.ForeignKey{
					{Columns: []string{"country_id"}, RefTable: Countries, RefColumns: []string{"id"}},
					{Columns: []string{"language_id"}, RefTable: Languages, RefColumns: []string{"id"}},
				},
			},
			{
				FQN: Borders,
				Columns: []ddl.ColumnDef{
					{Name: "country_id", Type: ddl.TypeInt, PrimaryKey: true},
					{Name: "neighbor_id", Type: ddl.TypeInt, PrimaryKey: true},
				},
				ForeignKeys: []ddl.ForeignKey{
					{Columns: []string{"country_id"}, RefTable: Countries, RefColumns: []string{"id"}},
					{Columns: []string{"neighbor_id"}, RefTable: Countries, RefColumns: []string{"id"}},
				},
				Checks: []string{"country_id <> neighbor_id"},
			},
		},
		Indexes: Indexes(),
	}
}

// Indexes are the secondary indexes the query layer relies on. They are
// separate from table creation so the indexer can re-assert them after a
// batch.
func Indexes() []ddl.IndexDef {
	return []ddl.IndexDef{
		{Name: "idx_countries_name_key", Table: Countries, Columns: []string{"name_key"}, Unique: true},
		{Name: "idx_countries_population", Table: Countries, Columns: []string{"population"}},
		{Name: "idx_countries_area", Table: Countries, Columns: []string{"area_km2"}},
		{Name: "idx_countries_density", Table: Countries, Columns: []string{"density"}},
		{Name: "idx_countries_government", Table: Countries, Columns: []string{"government_type"}},
		{Name: "idx_languages_name_key", Table: Languages, Columns: []string{"name_key"}, Unique: true},
		{Name: "idx_borders_neighbor", Table: Borders, Columns: []string{"neighbor_id"}},
		{Name: "idx_country_languages_language", Table: CountryLanguages, Columns: []string{"language_id"}},
	}
}
