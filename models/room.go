package models

import "time"

// Room — справочная запись помещения; используется только для
// дефолтного времени матча при создании.
type Room struct {
	ID               int        `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	DefaultStartTime *time.Time `json:"default_start_time,omitempty" db:"default_start_time"`
}
