package database

import "github.com/sirupsen/logrus"

// PreferenceStore exposes the preferences of one profile as a key-value
// store. Read failures are reported as missing values.
type PreferenceStore struct {
	db      *Database
	profile string
}

// Preferences returns the store of a profile
func (db *Database) Preferences(profile string) *PreferenceStore {
	return &PreferenceStore{db: db, profile: profile}
}

func (s *PreferenceStore) Get(key string) (string, bool) {
	value, ok, err := s.db.GetPreference(s.profile, key)
	if err != nil {
		s.db.logger.WithError(err).WithFields(logrus.Fields{
			"profile": s.profile,
			"key":     key,
		}).Warn("Preference lookup failed")
		return "", false
	}
	return value, ok
}

func (s *PreferenceStore) Set(key, value string) error {
	return s.db.SetPreference(s.profile, key, value)
}
