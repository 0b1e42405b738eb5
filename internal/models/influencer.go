package models

import (
	"errors"
	"time"
)

// Influencer is the creator a campaign is attributed to. Campaigns may
// reference a missing influencer; consumers must degrade to a nil
// influencer rather than fail.
type Influencer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	Platform  string    `json:"platform,omitempty"` // instagram, tiktok, youtube
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Influencer) Validate() error {
	if i.ID == "" {
		return errors.New("id is required")
	}
	if i.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
