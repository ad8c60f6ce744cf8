package assistant

// Column describes one field of the click table
type Column struct {
	Name        string
	Type        string
	Description string
}

// TableSchema describes the table questions are answered from
type TableSchema struct {
	Table       string
	Description string
	Columns     []Column
}

// ColumnNames returns the column names in declaration order
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}

	return names
}

//nolint:gochecknoglobals // Static schema shared by every prompt
var (
	// Schema is the click table exposed to the collaborators
	Schema = TableSchema{
		Table:       "clicks_data_prac.partial_encoded_clicks",
		Description: "Processed click/view events used for fraud detection and traffic-quality analysis.",
		Columns: []Column{
			{"_rid", "STRING", "Unique row identifier (UUID). Internal use only."},
			{"event_time", "TIMESTAMP", "Timestamp when the event occurred (UTC)."},
			{"hr", "INTEGER", "Hour of the day (0-23)."},
			{"is_engaged_view", "BOOLEAN", "TRUE = view only, FALSE = real click."},
			{"is_retargeting", "BOOLEAN", "TRUE when the event belongs to a retargeting campaign."},
			{"media_source", "STRING", "The media network behind the advertisement."},
			{"partner", "STRING", "Agency between the advertiser and the media source."},
			{"app_id", "STRING", "Identifier of the advertised application."},
			{"site_id", "STRING", "The platform or app where the ad was displayed."},
			{"engagement_type", "STRING", "Type of interaction: click, view, engaged_view or other."},
			{"total_events", "INTEGER", "Number of identical events aggregated into one row."},
		},
	}

	// CriticalFields lists the dimensions an aggregation must be scoped by
	CriticalFields = []string{"app_id", "media_source", "partner", "site_id"}
)
