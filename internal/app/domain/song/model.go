package song

import "time"

// Song is an uploaded track and its metadata.
type Song struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Genre       string    `json:"genre" db:"genre"`
	AudioURL    string    `json:"audioUrl" db:"audio_url"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Artist      string    `json:"artist" db:"artist"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Update carries the editable fields of a song. Nil fields are left unchanged.
type Update struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Genre       *string `json:"genre" validate:"omitempty,max=50"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url"`
}

// Apply copies the non-nil fields of u onto s.
func (u Update) Apply(s *Song) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Genre != nil {
		s.Genre = *u.Genre
	}
	if u.ImageURL != nil {
		s.ImageURL = *u.ImageURL
	}
}
