// Package datasets downloads the offline translation files the chapter cache
// reads from disk.
//
// Each allow-listed translation is fetched from its configured URL, a static
// mirror serving "<translation>.json", or a built-in default source. It is
// checked to be a non-empty JSON array of books and renamed into the dataset
// directory atomically, so a failed download never replaces a good file.
package datasets
