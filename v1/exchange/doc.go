// Package exchange exports collection data to JSON or CSV and imports it
// back.
//
// JSON files hold an array of {"id", "document", "metadata", "embedding"}
// objects. CSV files have id and document columns, one metadata_<key>
// column per metadata key and an optional JSON-encoded embedding column.
//
//	n, err := exchange.ExportCollection(ctx, conn, "docs", f, exchange.FormatCSV, 0)
//
//	batch, err := exchange.ImportFile("docs.json")
//	added, err := exchange.ImportCollection(ctx, conn, "docs_copy", batch, 0)
package exchange
