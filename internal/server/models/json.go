package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue encodes v for a JSONB column.
func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// jsonScan decodes a JSONB column into dst. NULL leaves dst untouched.
func jsonScan(src any, dst any) error {
	switch s := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(s, dst)
	case string:
		return json.Unmarshal([]byte(s), dst)
	default:
		return fmt.Errorf("unsupported JSON source type %T", src)
	}
}
