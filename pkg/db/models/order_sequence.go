package models

// OrderSequence is the daily order-number counter. Day is formatted YYYYMMDD;
// LastValue advances only through the upsert in internal/orders.
type OrderSequence struct {
	Day       string `gorm:"column:day;primaryKey"`
	LastValue int64  `gorm:"column:last_value;not null;default:0"`
}
