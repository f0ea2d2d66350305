package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	items   map[string][]byte
	saveErr error
	loadErr error
}

func (m *memStore) LoadItem(key string) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.items[key], nil
}

func (m *memStore) SaveItem(key string, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[key] = data
	return nil
}

func useStore(t *testing.T, s store) {
	t.Helper()
	prev := dataStore
	dataStore = s
	t.Cleanup(func() { dataStore = prev })
}

func TestResolveWithoutStore(t *testing.T) {
	useStore(t, nil)

	name, err := ResolvePlayerName("Dusty")
	assert.NoError(t, err)
	assert.Equal(t, "Dusty", name)

	name, err = ResolvePlayerName("")
	assert.NoError(t, err)
	assert.Empty(t, name)
}

func TestResolveRemembersExplicitName(t *testing.T) {
	useStore(t, &memStore{items: map[string][]byte{}})

	name, err := ResolvePlayerName("Dusty")
	require.NoError(t, err)
	assert.Equal(t, "Dusty", name)

	name, err = ResolvePlayerName("")
	require.NoError(t, err)
	assert.Equal(t, "Dusty", name)
}

func TestResolveReportsSaveFailure(t *testing.T) {
	diskFull := errors.New("disk full")
	useStore(t, &memStore{items: map[string][]byte{}, saveErr: diskFull})

	name, err := ResolvePlayerName("Dusty")
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, "Dusty", name, "name still usable")
}

func TestResolveReportsBrokenProfile(t *testing.T) {
	useStore(t, &memStore{items: map[string][]byte{profileKey: []byte("{")}})

	name, err := ResolvePlayerName("")
	assert.Error(t, err)
	assert.Empty(t, name)

	useStore(t, &memStore{loadErr: errors.New("unreadable")})
	_, err = ResolvePlayerName("")
	assert.ErrorContains(t, err, "unreadable")
}
