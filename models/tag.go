package models

// Tag — уникальное имя метки, many-to-many с задачами.
type Tag struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
