package models

import "time"

// Game представляет игру, по которой проводятся турниры.
type Game struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	ImageKey *string `json:"-" db:"image_key"`
	ImageURL *string `json:"image_url,omitempty" db:"-"`

	// Заполняется при выборке списка, в таблице не хранится
	TournamentsCount int `json:"tournaments_count" db:"-"`
}
