package models

import "time"

// User mirrors an account of the external identity provider. ClerkID is
// the provider's stable subject id.
type User struct {
	ID            string    `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	ClerkID       string    `json:"clerkId" gorm:"uniqueIndex;not null" bson:"clerkId"`
	Email         string    `json:"email" gorm:"index" bson:"email"`
	Username      string    `json:"username" bson:"username"`
	Photo         string    `json:"photo" bson:"photo"`
	FirstName     string    `json:"firstName" bson:"firstName"`
	LastName      string    `json:"lastName" bson:"lastName"`
	PlanID        int       `json:"planId" gorm:"not null" bson:"planId"`
	CreditBalance int       `json:"creditBalance" gorm:"not null" bson:"creditBalance"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserProfile holds the mutable profile fields pushed by the identity provider.
type UserProfile struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Photo     string `json:"photo"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Author projects u onto the fields populated on image reads.
func (u *User) Author() *Author {
	return &Author{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, ClerkID: u.ClerkID}
}

// NewUser builds the local record for a first sign-in of clerkID.
func NewUser(clerkID string, profile UserProfile, credits int) *User {
	return &User{
		ClerkID:       clerkID,
		Email:         profile.Email,
		Username:      profile.Username,
		Photo:         profile.Photo,
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		PlanID:        1,
		CreditBalance: credits,
	}
}
