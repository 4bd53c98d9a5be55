package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONB is free-form provider metadata stored as a Postgres jsonb column.
// A nil map is written as an empty object so the column stays NOT NULL.
type JSONB map[string]interface{}

func (JSONB) GormDataType() string { return "jsonb" }

func (JSONB) GormDBDataType(*gorm.DB, *schema.Field) string { return "jsonb" }

func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]interface{}(j))
	return string(b), err
}

func (j *JSONB) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*j = JSONB{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("jsonb: cannot scan %T", src)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("jsonb: %w", err)
	}
	*j = m
	return nil
}
