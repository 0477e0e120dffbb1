// Package httpapi serves the search, extraction and rebuild operations
// over HTTP with multipart uploads and JSON responses.
package httpapi
