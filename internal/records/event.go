package records

import (
	"bufio"
	"bytes"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// maxEventLineBytes bounds a single event line. Real events are well under 1 KiB.
const maxEventLineBytes = 1 << 20

// UserID accepts both string and numeric JSON user identifiers and
// normalizes them to a string. The empty string counts as absent.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(raw, []byte("null")):
		*u = ""
		return nil
	case len(raw) > 0 && raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
		return &MalformedRecordError{Field: "userId", Reason: "value is not a string or a number"}
	}
	*u = UserID(raw)
	return nil
}

// EventRecord is one line of an event log document.
type EventRecord struct {
	// Line is the 1-based line number within the source file.
	Line int `json:"-"`

	TS        *int64   `json:"ts"`
	Page      *string  `json:"page"`
	UserID    UserID   `json:"userId"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Gender    string   `json:"gender"`
	Level     string   `json:"level"`
	Song      *string  `json:"song"`
	Artist    *string  `json:"artist"`
	Length    *float64 `json:"length"`
	SessionID int64    `json:"sessionId"`
	Location  string   `json:"location"`
	UserAgent string   `json:"userAgent"`

	// decodeErr is set when the line is valid JSON but a field has the
	// wrong type. Only Line and Page are populated then.
	decodeErr error
}

var eventRecordType = reflect.TypeOf(EventRecord{})

// IsNextSong reports whether the event is an actual play.
func (e EventRecord) IsNextSong() bool {
	return e.Page != nil && *e.Page == sparkload.NextSongPage
}

// ParseEvents decodes a newline-delimited event document. Records are
// returned in file order. A line that is not a JSON object is reported as a
// MalformedRecordError and skipped. A line with a field of the wrong type is
// still returned, carrying its page and its decode error, so ExtractLog can
// keep its play_id position and report it.
func ParseEvents(content []byte) ([]EventRecord, []error) {
	var (
		events []EventRecord
		errs   []error
	)

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var ev EventRecord
		if err := json.Unmarshal(text, &ev); err != nil {
			var head struct {
				Page any `json:"page"`
			}
			if json.Unmarshal(text, &head) != nil {
				errs = append(errs, decodeError(line, err, eventRecordType))
				continue
			}
			ev = EventRecord{decodeErr: decodeError(line, err, eventRecordType)}
			if page, ok := head.Page.(string); ok {
				ev.Page = &page
			}
		}
		ev.Line = line
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, &MalformedRecordError{Line: line + 1, Reason: err.Error(), Err: err})
	}

	return events, errs
}

// LogRows holds everything extracted from one event document.
type LogRows struct {
	Times     []TimeRow
	Users     []UserRow
	Songplays []SongplayRow

	// Errors lists the records that were skipped, in file order.
	Errors []error

	// Filtered counts events dropped because they were not NextSong plays.
	Filtered int
}

// ExtractLog filters events to NextSong plays and projects each one onto a
// time row, a user row and a songplay row. The three slices stay aligned:
// index i of each describes the same event.
//
// play_id is the event's zero-based position among the NextSong events of
// the document. A malformed NextSong event, whether a field is missing or
// has the wrong type, is skipped but keeps its position, so it leaves a gap
// rather than shifting later play_ids.
func ExtractLog(events []EventRecord) LogRows {
	var rows LogRows
	position := 0

	for _, ev := range events {
		if ev.decodeErr != nil && !ev.IsNextSong() {
			rows.Errors = append(rows.Errors, ev.decodeErr)
			continue
		}
		if ev.Page == nil {
			rows.Errors = append(rows.Errors, missingField(ev.Line, "page"))
			continue
		}
		if !ev.IsNextSong() {
			rows.Filtered++
			continue
		}

		playID := position
		position++

		if err := validateEvent(ev); err != nil {
			rows.Errors = append(rows.Errors, err)
			continue
		}

		ts := FromEpochMillis(*ev.TS)
		rows.Times = append(rows.Times, NewTimeRow(ts))
		rows.Users = append(rows.Users, UserRow{
			UserID:    string(ev.UserID),
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
			Gender:    ev.Gender,
			Level:     ev.Level,
		})

		play := SongplayRow{
			PlayID:    playID,
			StartTime: ts,
			UserID:    string(ev.UserID),
			Level:     ev.Level,
			SessionID: ev.SessionID,
			Location:  ev.Location,
			UserAgent: ev.UserAgent,
		}
		if ev.Length != nil {
			play.Lookup = &SongKey{Title: *ev.Song, Artist: *ev.Artist, Duration: *ev.Length}
		}
		rows.Songplays = append(rows.Songplays, play)
	}

	return rows
}

func validateEvent(ev EventRecord) error {
	switch {
	case ev.decodeErr != nil:
		return ev.decodeErr
	case ev.TS == nil:
		return missingField(ev.Line, "ts")
	case ev.Song == nil:
		return missingField(ev.Line, "song")
	case ev.Artist == nil:
		return missingField(ev.Line, "artist")
	case ev.UserID == "":
		return missingField(ev.Line, "userId")
	}
	return nil
}
