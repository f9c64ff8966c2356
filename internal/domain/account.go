package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a bot user together with their token balance and
// generation preferences. Accounts are created on first contact and are
// never deleted; the balance is mutated only through ledger operations.
type Account struct {
	ID           uuid.UUID
	TelegramID   int64
	Username     string
	FirstName    string
	Balance      int
	Model        string
	ImageQuality string
	ImageSize    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Default generation settings applied to newly created accounts.
const (
	DefaultModel        = "gpt-image-1"
	DefaultImageQuality = "medium"
	DefaultImageSize    = "1024x1024"
)

// AccountSettings carries a partial settings update. Nil fields are left
// untouched.
type AccountSettings struct {
	Model        *string
	ImageQuality *string
	ImageSize    *string
}
