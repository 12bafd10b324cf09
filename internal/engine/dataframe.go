package engine

// Dataframe is a lazy relation: a SQL expression that produces rows when
// bound to a cursor. Plugins exchange dataframes instead of materialized
// row sets so the engine can stream or rewrite the underlying query.
type Dataframe struct {
	query string
}

// NewDataframe wraps a SQL query as a dataframe.
func NewDataframe(query string) *Dataframe {
	return &Dataframe{query: query}
}

// Query returns the SQL expression backing this dataframe.
func (d *Dataframe) Query() string {
	return d.query
}
