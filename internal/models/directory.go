package models

// Employee is a directory record of a staff member.
type Employee struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email,omitempty" yaml:"email"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id"`
	IsActive       bool   `json:"is_active" yaml:"is_active"`
}

// Client is a directory record of a customer.
type Client struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Phone          string `json:"phone,omitempty" yaml:"phone"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id"`
	IsActive       bool   `json:"is_active" yaml:"is_active"`
}

// Service is a directory record of a bookable service.
type Service struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	DurationMinutes int    `json:"duration_minutes,omitempty" yaml:"duration_minutes"`
	IsActive        bool   `json:"is_active" yaml:"is_active"`
}

// DirectorySnapshot groups the three directory lists, as loaded from a seed file.
type DirectorySnapshot struct {
	Employees []Employee `json:"employees" yaml:"employees"`
	Clients   []Client   `json:"clients" yaml:"clients"`
	Services  []Service  `json:"services" yaml:"services"`
}
