package models

import "github.com/google/uuid"

// ensureID assigns a v4 UUID when the caller has not picked one.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
