package records

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/goccy/go-json"
)

// SongDocument is the decoded form of one song metadata file.
// Pointer fields distinguish absent values from zero values.
type SongDocument struct {
	SongID          *string  `json:"song_id"`
	Title           *string  `json:"title"`
	ArtistID        *string  `json:"artist_id"`
	Year            *int     `json:"year"`
	Duration        *float64 `json:"duration"`
	ArtistName      *string  `json:"artist_name"`
	ArtistLocation  *string  `json:"artist_location"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
}

var songDocumentType = reflect.TypeOf(SongDocument{})

// ParseSong decodes the first JSON object of a song document. Song files
// hold a single record; anything after the first object is ignored.
func ParseSong(content []byte) (SongDocument, error) {
	var doc SongDocument
	dec := json.NewDecoder(bytes.NewReader(content))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return SongDocument{}, &MalformedRecordError{Line: 1, Reason: "document is empty"}
		}
		return SongDocument{}, decodeError(1, err, songDocumentType)
	}
	return doc, nil
}

// ExtractSong projects a song document onto the song and artist rows.
// The artist row always carries the song row's artist_id.
func ExtractSong(doc SongDocument) (SongRow, ArtistRow, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"song_id", doc.SongID != nil && *doc.SongID != ""},
		{"title", doc.Title != nil},
		{"artist_id", doc.ArtistID != nil && *doc.ArtistID != ""},
		{"year", doc.Year != nil},
		{"duration", doc.Duration != nil},
		{"artist_name", doc.ArtistName != nil},
	}
	for _, f := range required {
		if !f.present {
			return SongRow{}, ArtistRow{}, missingField(0, f.name)
		}
	}

	song := SongRow{
		SongID:   *doc.SongID,
		Title:    *doc.Title,
		ArtistID: *doc.ArtistID,
		Year:     *doc.Year,
		Duration: *doc.Duration,
	}

	artist := ArtistRow{
		ArtistID:  *doc.ArtistID,
		Name:      *doc.ArtistName,
		Latitude:  doc.ArtistLatitude,
		Longitude: doc.ArtistLongitude,
	}
	if doc.ArtistLocation != nil {
		artist.Location = *doc.ArtistLocation
	}

	return song, artist, nil
}

// decodeError converts a JSON decoding failure into a MalformedRecordError.
// A type mismatch is reported under the field's JSON key.
func decodeError(line int, err error, target reflect.Type) *MalformedRecordError {
	var fieldErr *MalformedRecordError
	if errors.As(err, &fieldErr) {
		return &MalformedRecordError{Line: line, Field: fieldErr.Field, Reason: fieldErr.Reason, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		reason := "value has the wrong type"
		if typeErr.Type != nil {
			reason = fmt.Sprintf("value is not a valid %s", typeErr.Type)
		}
		return &MalformedRecordError{
			Line:   line,
			Field:  jsonKey(target, typeErr.Field),
			Reason: reason,
			Err:    err,
		}
	}
	return &MalformedRecordError{Line: line, Reason: err.Error(), Err: err}
}

// jsonKey maps a decoder field path, which may use Go field names, to the
// JSON key declared on target.
func jsonKey(target reflect.Type, field string) string {
	name := field[strings.LastIndex(field, ".")+1:]
	if name == "" || target == nil || target.Kind() != reflect.Struct {
		return name
	}
	for i := 0; i < target.NumField(); i++ {
		f := target.Field(i)
		key, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if key == "" || key == "-" {
			continue
		}
		if strings.EqualFold(f.Name, name) || strings.EqualFold(key, name) {
			return key
		}
	}
	return name
}
