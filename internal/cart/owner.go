package cart

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/IstiakDeveloper/orgreeni/pkg/errors"
)

// Owner is the cart ownership key: an authenticated user or an anonymous
// session, never both.
type Owner struct {
	UserID    *uuid.UUID
	SessionID string
}

func UserOwner(id uuid.UUID) Owner {
	return Owner{UserID: &id}
}

func SessionOwner(sessionID string) Owner {
	return Owner{SessionID: strings.TrimSpace(sessionID)}
}

func (o Owner) IsGuest() bool {
	return o.UserID == nil
}

func (o Owner) validate() error {
	hasUser := o.UserID != nil && *o.UserID != uuid.Nil
	hasSession := strings.TrimSpace(o.SessionID) != ""
	if hasUser == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart owner must be exactly one of user or session")
	}
	return nil
}

func (o Owner) scope(q *gorm.DB) *gorm.DB {
	if o.UserID != nil {
		return q.Where("user_id = ?", *o.UserID)
	}
	return q.Where("session_id = ?", o.SessionID)
}

func (o Owner) fields() map[string]any {
	if o.UserID != nil {
		return map[string]any{"user_id": o.UserID.String()}
	}
	return map[string]any{"session_id": o.SessionID}
}
