package models

import "time"

// User owns clients and invoices. Email is the login identifier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:250;not null" json:"-"` // bcrypt hash
	Company   string    `gorm:"size:150" json:"company_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Clients  []Client  `gorm:"foreignKey:UserID" json:"clients,omitempty"`
	Invoices []Invoice `gorm:"foreignKey:UserID" json:"invoices,omitempty"`
}
