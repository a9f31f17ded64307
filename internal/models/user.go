package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	AccountPersonal     = "personal"
	AccountOrganization = "organization"
)

// User mirrors the identity provider's account, keyed by its UID.
type User struct {
	bun.BaseModel `bun:"table:users" bson:"-" json:"-"`

	UID          string    `bun:"uid,pk" bson:"_id" json:"firebaseUid"`
	Name         string    `bun:"name" bson:"name" json:"name"`
	Email        string    `bun:"email,notnull" bson:"email" json:"email"`
	AccountType  string    `bun:"account_type" bson:"accountType" json:"accountType"`
	Phone        string    `bun:"phone" bson:"phone,omitempty" json:"phone,omitempty"`
	Organization string    `bun:"organization" bson:"organization,omitempty" json:"organization,omitempty"`
	Interests    []string  `bun:"interests" bson:"interests,omitempty" json:"interests,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" bson:"updatedAt" json:"updatedAt"`
}

func (u User) IsOrganizer() bool {
	return u.AccountType == AccountOrganization
}
