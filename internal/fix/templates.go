package fix

import "github.com/sells-group/recon-cli/internal/model"

// templates holds narrative, data snippet, query snippet and prevention
// note per kind. Each template executes against a model.Finding.
var templates = map[model.FindingKind][4]string{
	model.KindDuplicateRecords: {
		`{{with .Evidence.Duplicate}}Growth contains {{.DuplicateRows}} duplicate rows at {{.Segment}} grain ({{.ObservedRows}} rows for {{.DistinctRows}} distinct keys). Deduplicate growth before comparing.{{end}}`,
		`{{with .Evidence.Duplicate}}# Remove duplicate rows from the growth extract
growth_df_clean = growth_df.drop_duplicates()
print(f"Removed {len(growth_df) - len(growth_df_clean)} duplicates")
{{- if .SampleKeys}}
# Most duplicated keys: {{join .SampleKeys "; "}}{{end}}{{end}}`,
		`-- Add DISTINCT to the growth extraction query
SELECT DISTINCT
    campaign_name, day, cost, impressions, clicks
FROM growth_marketing_source
WHERE ...`,
		`Add a DISTINCT clause to the extraction query, or deduplicate in the ETL pipeline before the growth extract is produced.`,
	},
	model.KindGrainMismatch: {
		`{{with .Evidence.Grain}}Overall totals match but {{.WorstSegment}} passes only {{printf "%.1f" .WorstPercent}}% of rows. Growth has {{.GrowthSourceRows}} source rows against {{.GoldSourceRows}} in gold, so the two sources are aggregated at different levels of detail.{{end}}`,
		`# Roll growth up to the gold grain before comparing
growth_df_aggregated = growth_df.groupby(['campaign_name', 'day']).agg({
    'cost': 'sum',
    'impressions': 'sum',
    'clicks': 'sum'
}).reset_index()`,
		`-- Use the same GROUP BY in both sources
SELECT
    campaign_name,
    DATE(timestamp) AS day,
    SUM(cost) AS cost,
    SUM(impressions) AS impressions,
    SUM(clicks) AS clicks
FROM source
GROUP BY campaign_name, DATE(timestamp)`,
		`Standardize the aggregation level in both pipelines and document the expected grain (for example campaign + date) in the schema definition.`,
	},
	model.KindDateShift: {
		`{{with .Evidence.DateShift}}Growth {{.Metric}} lines up with gold when shifted {{abs .OffsetDays}} day(s) {{if gt .OffsetDays 0}}back{{else}}forward{{end}}: {{printf "%.0f" (pct .AlignedScore)}}% of days match aligned versus {{printf "%.0f" (pct .UnshiftedScore)}}% as reported. This usually means the sources cut days in different time zones.{{end}}`,
		`{{with .Evidence.DateShift}}# Normalize dates to UTC on both sides
growth_df['day'] = pd.to_datetime(growth_df['day']).dt.tz_localize(None).dt.date
gold_df['day'] = pd.to_datetime(gold_df['day']).dt.tz_localize(None).dt.date
# Or realign growth by the detected offset
growth_df['day'] = growth_df['day'] - pd.Timedelta(days={{.OffsetDays}}){{end}}`,
		`-- Standardize the time zone in both queries
DATE(timestamp AT TIME ZONE 'UTC') AS day`,
		`Always extract dates in UTC, define time zone handling in the data contract, and validate date consistency in the ETL.`,
	},
	model.KindMissingEntities: {
		`{{with .Evidence.Missing}}{{.OneSidedRows}} of {{.TotalRows}} {{.Segment}} keys exist on one side only ({{.GrowthOnly}} growth only, {{.GoldOnly}} gold only).{{end}}`,
		`{{with .Evidence.Missing}}# Restrict both sides to common keys
common = set(growth_df['campaign_name']) & set(gold_df['campaign_name'])
growth_df_filtered = growth_df[growth_df['campaign_name'].isin(common)]
gold_df_filtered = gold_df[gold_df['campaign_name'].isin(common)]
{{- if .SampleGrowthOnly}}
# Growth only: {{join .SampleGrowthOnly "; "}}{{end}}
{{- if .SampleGoldOnly}}
# Gold only: {{join .SampleGoldOnly "; "}}{{end}}{{end}}`,
		`{{with .Evidence.Missing}}-- Align both sources on shared keys
WHERE campaign_name IN (
    SELECT campaign_name FROM growth_source
    INTERSECT
    SELECT campaign_name FROM gold_source
){{if .SampleGrowthOnly}}
-- Investigate: {{quoted .SampleGrowthOnly}}{{end}}{{end}}`,
		`Enforce campaign naming standards, reject campaigns missing from the master list, and keep campaign metadata in sync between systems.`,
	},
	model.KindSystematicBias: {
		`{{with .Evidence.Bias}}Failing {{.Segment}} rows are consistently {{if eq .Direction "growth_higher"}}higher{{else}}lower{{end}} in growth, with a median difference of {{printf "%+.2f" .MedianDiffPct}}% across {{.Samples}} comparisons. This points at a filter, currency, tax or unit difference rather than noise.{{end}}`,
		`# Check for differing filters, currency conversion, tax handling
# or date window boundaries between the two extracts
print("Growth date range:", growth_df['day'].min(), "to", growth_df['day'].max())
print("Gold date range:", gold_df['day'].min(), "to", gold_df['day'].max())`,
		`-- Audit both queries for systematic differences
-- Compare date filters, WHERE clauses, CASE statements and currency multipliers`,
		`{{with .Evidence.Bias}}{{if eq .Direction "growth_higher"}}Growth{{else}}Gold{{end}} is consistently higher. Review source query logic, filters and transformations so both sides apply the same business rules.{{end}}`,
	},
}
