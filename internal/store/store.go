// Package store keeps the local copy of synchronized address books in a
// SQLite database.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"

	"github.com/emersion/go-vcard"
	_ "modernc.org/sqlite"

	"github.com/chucktrukk/carddavclient/carddav"
	"github.com/chucktrukk/carddavclient/davsync"
	"github.com/chucktrukk/carddavclient/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS cards (
	addressbook TEXT NOT NULL,
	uri TEXT NOT NULL,
	etag TEXT NOT NULL,
	data TEXT NOT NULL,
	PRIMARY KEY (addressbook, uri)
);

CREATE TABLE IF NOT EXISTS sync_state (
	addressbook TEXT PRIMARY KEY,
	token TEXT NOT NULL
);
`

// Card is a locally stored address object.
type Card struct {
	URI  string
	ETag string
	Card vcard.Card
}

// Store is a SQLite-backed local copy of address books.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the checkpoint of the address book, or an empty string if
// it was never synchronized.
func (s *Store) Token(ctx context.Context, addressBook string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx, `SELECT token FROM sync_state WHERE addressbook = ?`, addressBook).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query token: %w", err)
	}
	return token, nil
}

// SetToken stores the checkpoint of the address book.
func (s *Store) SetToken(ctx context.Context, addressBook, token string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (addressbook, token) VALUES (?, ?)
		ON CONFLICT(addressbook) DO UPDATE SET token = excluded.token
	`, addressBook, token)
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Reset drops the local copy of the address book: its cards and its
// checkpoint.
func (s *Store) Reset(ctx context.Context, addressBook string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE addressbook = ?`, addressBook); err != nil {
		return fmt.Errorf("delete cards: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sync_state WHERE addressbook = ?`, addressBook); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}

// Synchronize brings the local copy of ab up to date and stores the new
// checkpoint. The checkpoint is left untouched if the synchronization fails.
//
// If the server rejects the stored checkpoint, the local copy is reset and a
// full synchronization is run: an initial sync-collection doesn't report the
// deletions that happened in the meantime.
func (s *Store) Synchronize(ctx context.Context, syncer *davsync.Syncer, ab davsync.Collection, props []string) error {
	p := ab.Path()

	token, err := s.Token(ctx, p)
	if err != nil {
		return err
	}

	newToken, err := syncer.Synchronize(ctx, ab, s.Handler(p), props, token)
	if errors.Is(err, carddav.ErrSyncTokenInvalid) && token != "" {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("collection", p).
			Msg("checkpoint rejected, running a full synchronization")
		if err := s.Reset(ctx, p); err != nil {
			return err
		}
		newToken, err = syncer.Synchronize(ctx, ab, s.Handler(p), props, "")
	}
	if err != nil {
		return fmt.Errorf("synchronize %v: %w", p, err)
	}

	return s.SetToken(ctx, p, newToken)
}

// Cards lists the cards stored for the address book, ordered by URI. Cards
// that fail to parse are returned with a nil Card.
func (s *Store) Cards(ctx context.Context, addressBook string) ([]Card, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uri, etag, data
		FROM cards
		WHERE addressbook = ?
		ORDER BY uri ASC
	`, addressBook)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	cards := make([]Card, 0)
	for rows.Next() {
		var c Card
		var data string
		if err := rows.Scan(&c.URI, &c.ETag, &data); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		if data != "" {
			c.Card, _ = vcard.NewDecoder(bytes.NewReader([]byte(data))).Decode()
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// Handler returns a davsync.Handler updating the cards of the address book.
func (s *Store) Handler(addressBook string) davsync.Handler {
	return &handler{db: s.db, addressBook: addressBook}
}

type handler struct {
	db          *sql.DB
	addressBook string
}

var _ davsync.Handler = (*handler)(nil)

func (h *handler) AddressObjectChanged(ctx context.Context, uri, etag string, card vcard.Card) error {
	data, err := encodeCard(card)
	if err != nil {
		logger.FromContext(ctx).Warn().
			Err(err).
			Str("uri", uri).
			Msg("failed to encode card, storing it without data")
		data = ""
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO cards (addressbook, uri, etag, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(addressbook, uri) DO UPDATE SET etag = excluded.etag, data = excluded.data
	`, h.addressBook, uri, etag, data)
	if err != nil {
		return fmt.Errorf("upsert card %v: %w", uri, err)
	}
	return nil
}

// encodeCard serializes card. Cards without a VERSION, which the decoder
// accepts but the encoder doesn't, are written as vCard 3.0. card itself is
// left untouched.
func encodeCard(card vcard.Card) (string, error) {
	if card == nil {
		return "", nil
	}
	if card.Get(vcard.FieldVersion) == nil {
		card = maps.Clone(card)
		card.SetValue(vcard.FieldVersion, "3.0")
	}

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (h *handler) AddressObjectDeleted(ctx context.Context, uri string) error {
	_, err := h.db.ExecContext(ctx, `DELETE FROM cards WHERE addressbook = ? AND uri = ?`, h.addressBook, uri)
	if err != nil {
		return fmt.Errorf("delete card %v: %w", uri, err)
	}
	return nil
}

func (h *handler) ExistingETags(ctx context.Context) (map[string]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT uri, etag FROM cards WHERE addressbook = ?`, h.addressBook)
	if err != nil {
		return nil, fmt.Errorf("query etags: %w", err)
	}
	defer rows.Close()

	etags := make(map[string]string)
	for rows.Next() {
		var uri, etag string
		if err := rows.Scan(&uri, &etag); err != nil {
			return nil, fmt.Errorf("scan etag: %w", err)
		}
		etags[uri] = etag
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate etags: %w", err)
	}
	return etags, nil
}
