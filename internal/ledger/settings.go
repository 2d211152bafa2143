package ledger

import "gorm.io/gorm"

// Settings is a small key-value store for operator-tunable values,
// generalized from the teacher's internal/models.Settings +
// handlers_settings.go.
type Settings struct {
	db *gorm.DB
}

// NewSettings wraps db for settings access.
func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

// Get returns the value for key and whether it was set.
func (s *Settings) Get(key string) (string, bool) {
	var row SettingRow
	if err := s.db.Where("key = ?", key).First(&row).Error; err != nil {
		return "", false
	}
	return row.Value, true
}

// All returns every setting.
func (s *Settings) All() ([]SettingRow, error) {
	var rows []SettingRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Set creates or updates key's value.
func (s *Settings) Set(key, value string) error {
	row := SettingRow{Key: key, Value: value}
	return s.db.Save(&row).Error
}

// Delete removes key.
func (s *Settings) Delete(key string) error {
	return s.db.Delete(&SettingRow{}, "key = ?", key).Error
}
