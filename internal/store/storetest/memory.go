// Package storetest provides an in-memory sparkload.Store for tests.
//
// MemoryStore follows the same contract as the PostgreSQL store:
// songs and artists keep their first version, users keep their latest
// level, time and songplay rows are appended, and writes only become
// visible to other transactions on Commit.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vvka-141/sparkload/internal/records"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// Tables is a snapshot of the committed rows.
type Tables struct {
	Songs     map[string]records.SongRow
	Artists   map[string]records.ArtistRow
	Users     map[string]records.UserRow
	Times     []records.TimeRow
	Songplays []records.SongplayRow
}

func newTables() Tables {
	return Tables{
		Songs:   make(map[string]records.SongRow),
		Artists: make(map[string]records.ArtistRow),
		Users:   make(map[string]records.UserRow),
	}
}

func (t Tables) clone() Tables {
	c := newTables()
	for k, v := range t.Songs {
		c.Songs[k] = v
	}
	for k, v := range t.Artists {
		c.Artists[k] = v
	}
	for k, v := range t.Users {
		c.Users[k] = v
	}
	c.Times = append([]records.TimeRow(nil), t.Times...)
	c.Songplays = append([]records.SongplayRow(nil), t.Songplays...)
	return c
}

// StmtEnsureSchema lets FailNext target EnsureSchema.
const StmtEnsureSchema sparkload.StatementID = "ensure-schema"

// MemoryStore implements sparkload.Store in memory.
type MemoryStore struct {
	mu        sync.Mutex
	committed Tables
	closed    bool
	schema    bool

	// failures maps a statement to the error its next executions return.
	failures map[sparkload.StatementID][]error

	// Commits and Rollbacks count finished transactions.
	Commits   int
	Rollbacks int
}

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		committed: newTables(),
		failures:  make(map[sparkload.StatementID][]error),
	}
}

// FailNext makes the next executions of stmt fail with errs, one per call.
func (s *MemoryStore) FailNext(stmt sparkload.StatementID, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[stmt] = append(s.failures[stmt], errs...)
}

// Snapshot returns a copy of the committed tables.
func (s *MemoryStore) Snapshot() Tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.clone()
}

// Closed reports whether Close was called.
func (s *MemoryStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EnsureSchema records that the bootstrap was requested.
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	if err := s.takeFailure(StmtEnsureSchema); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = true
	return nil
}

// SchemaEnsured reports whether EnsureSchema succeeded.
func (s *MemoryStore) SchemaEnsured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

func (s *MemoryStore) Begin(ctx context.Context) (sparkload.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("store is closed")
	}
	return &memTx{store: s, work: s.committed.clone()}, nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) takeFailure(stmt sparkload.StatementID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.failures[stmt]
	if len(queue) == 0 {
		return nil
	}
	s.failures[stmt] = queue[1:]
	return queue[0]
}

// memTx works on a private copy of the tables and publishes it on Commit.
type memTx struct {
	store *MemoryStore
	work  Tables
	done  bool
}

func (t *memTx) Exec(ctx context.Context, stmt sparkload.StatementID, args ...any) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	if err := t.store.takeFailure(stmt); err != nil {
		return err
	}

	var err error
	switch stmt {
	case sparkload.StmtInsertSong:
		err = t.insertSong(args)
	case sparkload.StmtInsertArtist:
		err = t.insertArtist(args)
	case sparkload.StmtInsertTime:
		err = t.insertTime(args)
	case sparkload.StmtInsertUser:
		err = t.insertUser(args)
	case sparkload.StmtInsertSongplay:
		err = t.insertSongplay(args)
	default:
		err = fmt.Errorf("unknown statement %q", stmt)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", stmt, err)
	}
	return nil
}

func (t *memTx) QueryOne(ctx context.Context, stmt sparkload.StatementID, args []any, dest ...any) (bool, error) {
	if t.done {
		return false, errors.New("transaction already closed")
	}
	if err := t.store.takeFailure(stmt); err != nil {
		return false, err
	}
	if stmt != sparkload.StmtSelectSong {
		return false, fmt.Errorf("unknown statement %q", stmt)
	}
	if len(args) != 3 || len(dest) != 2 {
		return false, fmt.Errorf("%s: want 3 args and 2 destinations, got %d and %d", stmt, len(args), len(dest))
	}

	title, _ := args[0].(string)
	artistName, _ := args[1].(string)
	duration, _ := args[2].(float64)

	for _, song := range t.work.Songs {
		artist, ok := t.work.Artists[song.ArtistID]
		if !ok {
			continue
		}
		if song.Title == title && artist.Name == artistName && song.Duration == duration {
			songID, ok1 := dest[0].(*string)
			artistID, ok2 := dest[1].(*string)
			if !ok1 || !ok2 {
				return false, errors.New("destinations must be *string")
			}
			*songID = song.SongID
			*artistID = artist.ArtistID
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.committed = t.work
	t.store.Commits++
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.Rollbacks++
	return nil
}

func (t *memTx) insertSong(args []any) error {
	if len(args) != 5 {
		return fmt.Errorf("want 5 args, got %d", len(args))
	}
	row := records.SongRow{}
	var ok [5]bool
	row.SongID, ok[0] = args[0].(string)
	row.Title, ok[1] = args[1].(string)
	row.ArtistID, ok[2] = args[2].(string)
	row.Year, ok[3] = args[3].(int)
	row.Duration, ok[4] = args[4].(float64)
	if err := allOK(ok[:]); err != nil {
		return err
	}
	if _, exists := t.work.Songs[row.SongID]; !exists {
		t.work.Songs[row.SongID] = row
	}
	return nil
}

func (t *memTx) insertArtist(args []any) error {
	if len(args) != 5 {
		return fmt.Errorf("want 5 args, got %d", len(args))
	}
	row := records.ArtistRow{}
	var ok [5]bool
	row.ArtistID, ok[0] = args[0].(string)
	row.Name, ok[1] = args[1].(string)
	row.Location, ok[2] = args[2].(string)
	row.Latitude, ok[3] = args[3].(*float64)
	row.Longitude, ok[4] = args[4].(*float64)
	if err := allOK(ok[:]); err != nil {
		return err
	}
	if _, exists := t.work.Artists[row.ArtistID]; !exists {
		t.work.Artists[row.ArtistID] = row
	}
	return nil
}

func (t *memTx) insertTime(args []any) error {
	if len(args) != 7 {
		return fmt.Errorf("want 7 args, got %d", len(args))
	}
	row := records.TimeRow{}
	var ok [7]bool
	row.StartTime, ok[0] = args[0].(time.Time)
	row.Hour, ok[1] = args[1].(int)
	row.Day, ok[2] = args[2].(int)
	row.Week, ok[3] = args[3].(int)
	row.Month, ok[4] = args[4].(int)
	row.Year, ok[5] = args[5].(int)
	row.Weekday, ok[6] = args[6].(int)
	if err := allOK(ok[:]); err != nil {
		return err
	}
	t.work.Times = append(t.work.Times, row)
	return nil
}

func (t *memTx) insertUser(args []any) error {
	if len(args) != 5 {
		return fmt.Errorf("want 5 args, got %d", len(args))
	}
	row := records.UserRow{}
	var ok [5]bool
	row.UserID, ok[0] = args[0].(string)
	row.FirstName, ok[1] = args[1].(string)
	row.LastName, ok[2] = args[2].(string)
	row.Gender, ok[3] = args[3].(string)
	row.Level, ok[4] = args[4].(string)
	if err := allOK(ok[:]); err != nil {
		return err
	}
	if existing, exists := t.work.Users[row.UserID]; exists {
		existing.Level = row.Level
		t.work.Users[row.UserID] = existing
		return nil
	}
	t.work.Users[row.UserID] = row
	return nil
}

func (t *memTx) insertSongplay(args []any) error {
	if len(args) != 9 {
		return fmt.Errorf("want 9 args, got %d", len(args))
	}
	row := records.SongplayRow{}
	var ok [9]bool
	row.PlayID, ok[0] = args[0].(int)
	row.StartTime, ok[1] = args[1].(time.Time)
	row.UserID, ok[2] = args[2].(string)
	row.Level, ok[3] = args[3].(string)
	row.SongID, ok[4] = args[4].(*string)
	row.ArtistID, ok[5] = args[5].(*string)
	row.SessionID, ok[6] = args[6].(int64)
	row.Location, ok[7] = args[7].(string)
	row.UserAgent, ok[8] = args[8].(string)
	if err := allOK(ok[:]); err != nil {
		return err
	}
	t.work.Songplays = append(t.work.Songplays, row)
	return nil
}

func allOK(ok []bool) error {
	for i, v := range ok {
		if !v {
			return fmt.Errorf("argument %d has unexpected type", i+1)
		}
	}
	return nil
}

var _ sparkload.Store = (*MemoryStore)(nil)
