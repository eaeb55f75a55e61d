package model

import (
	"time"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
)

// User is the profile-store view of a person. TelegramID is the opaque
// platform identity; ID is the internal primary key everything else joins on.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	Age        int
	Gender     enums.Gender
	University string
	Bio        string
	Hobbies    string
	PhotoID    string
	Visible    bool

	PreferredAgeMin     *int
	PreferredAgeMax     *int
	PreferredUniversity *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
