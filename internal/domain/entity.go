package domain

import (
	"time"
)

// Counter keys shared by every CounterStore backend.
const (
	CounterBuy  = "buy"
	CounterSell = "sell"
)

// CounterRecord is the SQL row for a single event counter.
type CounterRecord struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     int64     `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name regardless of gorm naming strategy.
func (CounterRecord) TableName() string {
	return "counters"
}
