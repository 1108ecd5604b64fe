// Package loader applies dataset documents to the store, one transaction
// per file.
//
// An Extractor turns the bytes of one document into writes against an open
// transaction. The Loader discovers the documents under a root, and for each
// one reads it, begins a transaction, applies the extractor and commits.
// A file that fails is rolled back and recorded in the LoadReport; the
// remaining files are still loaded.
//
// Two extractors are provided:
//   - SongExtractor writes one song row and one artist row per document
//   - LogExtractor writes time, user and songplay rows for every NextSong
//     event, resolving each play to a song and artist by exact match
package loader
