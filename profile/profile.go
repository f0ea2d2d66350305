// Package profile remembers the local player between runs.
package profile

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
)

// SavedProfile is the local player data stored on disk between sessions.
type SavedProfile struct {
	PlayerName string `json:"playerName"`
}

const profileKey = "profile"

// store is the part of *gdata.Manager the profile needs.
type store interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
}

var dataStore store

// InitPersistence opens the gdata store for profile storage. Without it the
// profile is neither loaded nor saved.
func InitPersistence() error {
	m, err := gdata.Open(gdata.Config{
		AppName: "truckrace",
	})
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	dataStore = m
	return nil
}

// LoadProfile returns the saved profile, or nil when there is none.
func LoadProfile() (*SavedProfile, error) {
	if dataStore == nil {
		return nil, nil
	}

	data, err := dataStore.LoadItem(profileKey)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var p SavedProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// SaveProfile writes p to disk.
func SaveProfile(p *SavedProfile) error {
	if dataStore == nil || p == nil {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := dataStore.SaveItem(profileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ResolvePlayerName picks the name to race under: an explicit name wins and
// is remembered, otherwise the saved one is reused. The name is usable even
// when the error is not nil.
func ResolvePlayerName(explicit string) (string, error) {
	if explicit != "" {
		return explicit, SaveProfile(&SavedProfile{PlayerName: explicit})
	}
	p, err := LoadProfile()
	if p == nil {
		return "", err
	}
	return p.PlayerName, err
}
