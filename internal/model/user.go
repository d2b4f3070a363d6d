package model

import "time"

type User struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Email     string    `gorm:"size:256;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
