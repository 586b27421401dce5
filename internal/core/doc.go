// Package core is the inventory service layer: it accepts uploaded
// spreadsheets, stores the normalized records, and answers the paged listing
// and summary queries. It has no HTTP dependencies and is shared by the web
// server and the command line tool.
//
// # Imports
//
// An import runs under [UploadLimiter], parses the whole file with
// [ingest.Normalizer], and writes every record in one transaction with
// COPY. A file either lands completely or not at all: an ingestion error
// stops before the database is touched, and a uniqueness violation on
// (product SKU, purchase date) rolls the transaction back and surfaces as
// [ErrDuplicateRecord].
//
// # Errors
//
// [MapError] turns any error from this package into a [UserMessage] with a
// support code. Ingestion errors keep their message verbatim so the uploader
// sees the exact row that failed.
package core
