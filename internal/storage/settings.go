package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SettingValue is the stored value wrapper: settings.value is jsonb
// with the observed shape {"v": <value>}.
type SettingValue struct {
	V any `json:"v"`
}

// GetSettings fetches the value wrappers for the requested keys.
// Keys absent from the store are simply missing from the result map;
// a partial result is not an error.
func (db *DB) GetSettings(ctx context.Context, keys []string) (map[string]SettingValue, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT key, value
		FROM settings
		WHERE key = ANY($1)
	`, keys)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]SettingValue, len(keys))

	for rows.Next() {
		var (
			key string
			raw []byte
		)

		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}

		var value SettingValue
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode setting %q: %w", key, err)
		}

		settings[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get settings rows: %w", err)
	}

	return settings, nil
}

// SetSetting upserts a single key with the {"v": value} wrapper.
func (db *DB) SetSetting(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(SettingValue{V: value})
	if err != nil {
		return fmt.Errorf("marshal setting %q: %w", key, err)
	}

	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, raw); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}

	return nil
}

// SettingInt extracts an integer setting, falling back to def when the
// key is absent or the value is not numeric. JSON numbers decode as
// float64; string values are parsed for robustness.
func SettingInt(settings map[string]SettingValue, key string, def int) int {
	value, ok := settings[key]
	if !ok {
		return def
	}

	switch v := value.V.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}

// SettingString extracts a string setting, falling back to def when the
// key is absent or holds a non-string value.
func SettingString(settings map[string]SettingValue, key string, def string) string {
	value, ok := settings[key]
	if !ok {
		return def
	}

	if s, ok := value.V.(string); ok {
		return s
	}

	return def
}
