// Package records turns song metadata and event log documents into typed
// rows for the song, artist, time, user and songplay tables.
//
// Nothing here touches the store: parsing and projection are pure functions,
// so every rule (NextSong filtering, play_id assignment, timestamp
// decomposition) can be tested without a database. The loader package
// consumes the rows and issues the statements.
package records
