package models

import (
	"time"
)

// DefaultProfileImage is the sentinel assigned to users who never uploaded
// a profile picture. Supersession never deletes it.
const DefaultProfileImage = "defaultpp.jpg"

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	ImageFile string    `json:"image_file"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type Item struct {
	ID                int       `json:"id"`
	Name              string    `json:"name"`
	MainDescription   string    `json:"main_description"`
	PointsDescription string    `json:"points_description"` // newline-separated bullet lines
	ImageFile         string    `json:"image_file"`
	Price             float64   `json:"price"`
	CreatedAt         time.Time `json:"created_at"`
}

// Order statuses form a closed set; handlers validate against
// ValidOrderStatuses before writing.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusShipped   = "shipped"
	StatusCancelled = "cancelled"
)

var ValidOrderStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusShipped:   true,
	StatusCancelled: true,
}

type Order struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	ItemID    int       `json:"item_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	// Joined display data
	ItemName      string  `json:"item_name"`
	ItemImageFile string  `json:"item_image_file"`
	ItemPrice     float64 `json:"item_price"`
	Username      string  `json:"username"`
	UserEmail     string  `json:"user_email"`
}
