package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emersion/go-vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newCard(uid, name string) vcard.Card {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, "3.0")
	card.SetValue(vcard.FieldUID, uid)
	card.SetValue(vcard.FieldFormattedName, name)
	return card
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}

func TestStore_Token(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	token, err := s.Token(ctx, "/ab/")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SetToken(ctx, "/ab/", "T1"))
	require.NoError(t, s.SetToken(ctx, "/ab/", "T2"))
	require.NoError(t, s.SetToken(ctx, "/other/", "X"))

	token, err = s.Token(ctx, "/ab/")
	require.NoError(t, err)
	assert.Equal(t, "T2", token)
}

func TestStore_Handler(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	h := s.Handler("/ab/")

	require.NoError(t, h.AddressObjectChanged(ctx, "/ab/a.vcf", "E1", newCard("a", "Alice")))
	require.NoError(t, h.AddressObjectChanged(ctx, "/ab/b.vcf", "E2", newCard("b", "Bob")))
	require.NoError(t, h.AddressObjectChanged(ctx, "/ab/a.vcf", "E3", newCard("a", "Alice Gopher")))
	require.NoError(t, h.AddressObjectChanged(ctx, "/ab/broken.vcf", "E4", nil))
	require.NoError(t, s.Handler("/other/").AddressObjectChanged(ctx, "/other/z.vcf", "Z", newCard("z", "Zed")))

	etags, err := h.ExistingETags(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"/ab/a.vcf": "E3", "/ab/b.vcf": "E2", "/ab/broken.vcf": "E4"}, etags)

	require.NoError(t, h.AddressObjectDeleted(ctx, "/ab/b.vcf"))
	require.NoError(t, h.AddressObjectDeleted(ctx, "/ab/never-stored.vcf"))

	cards, err := s.Cards(ctx, "/ab/")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "/ab/a.vcf", cards[0].URI)
	assert.Equal(t, "E3", cards[0].ETag)
	require.NotNil(t, cards[0].Card)
	assert.Equal(t, "Alice Gopher", cards[0].Card.PreferredValue(vcard.FieldFormattedName))
	assert.Equal(t, "/ab/broken.vcf", cards[1].URI)
	assert.Nil(t, cards[1].Card)
}

func TestStore_Handler_cardWithoutVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	card, err := vcard.NewDecoder(strings.NewReader("BEGIN:VCARD\r\nFN:Bob\r\nEND:VCARD\r\n")).Decode()
	require.NoError(t, err)
	require.Nil(t, card.Get(vcard.FieldVersion))

	require.NoError(t, s.Handler("/ab/").AddressObjectChanged(ctx, "/ab/b.vcf", "E1", card))
	assert.Nil(t, card.Get(vcard.FieldVersion), "the delivered card must not be modified")

	cards, err := s.Cards(ctx, "/ab/")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "E1", cards[0].ETag)
	require.NotNil(t, cards[0].Card)
	assert.Equal(t, "Bob", cards[0].Card.PreferredValue(vcard.FieldFormattedName))
	assert.Equal(t, "3.0", cards[0].Card.Value(vcard.FieldVersion))
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Handler("/ab/").AddressObjectChanged(ctx, "/ab/a.vcf", "E1", newCard("a", "Alice")))
	require.NoError(t, s.Handler("/other/").AddressObjectChanged(ctx, "/other/z.vcf", "Z", newCard("z", "Zed")))
	require.NoError(t, s.SetToken(ctx, "/ab/", "T1"))
	require.NoError(t, s.SetToken(ctx, "/other/", "X"))

	require.NoError(t, s.Reset(ctx, "/ab/"))

	cards, err := s.Cards(ctx, "/ab/")
	require.NoError(t, err)
	assert.Empty(t, cards)
	token, err := s.Token(ctx, "/ab/")
	require.NoError(t, err)
	assert.Empty(t, token)

	cards, err = s.Cards(ctx, "/other/")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
	token, err = s.Token(ctx, "/other/")
	require.NoError(t, err)
	assert.Equal(t, "X", token)
}
