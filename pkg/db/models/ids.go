package models

import "github.com/google/uuid"

// ensureID assigns a v4 id before insert so rows get an id on databases
// without gen_random_uuid().
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
