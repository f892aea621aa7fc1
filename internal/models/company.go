package models

import "time"

// Company holds metadata extracted from a company website
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Industry    string    `json:"industry"`
	Founded     string    `json:"founded"`
	Employees   string    `json:"employees"`
	Logo        string    `json:"logo,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
