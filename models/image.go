package models

import (
	"time"

	"github.com/krishkalaria12/snap-edit/transformations"
)

// Image is a denormalized record of an uploaded asset and the
// transformation applied to it.
type Image struct {
	ID                 string                 `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Title              string                 `json:"title" gorm:"not null" bson:"title"`
	TransformationType transformations.Type   `json:"transformationType" gorm:"not null" bson:"transformationType"`
	PublicID           string                 `json:"publicId" gorm:"not null;index" bson:"publicId"`
	SecureURL          string                 `json:"secureURL" gorm:"not null" bson:"secureURL"`
	Width              int                    `json:"width,omitempty" bson:"width,omitempty"`
	Height             int                    `json:"height,omitempty" bson:"height,omitempty"`
	Config             transformations.Config `json:"config" gorm:"serializer:json;type:text" bson:"config"`
	TransformationURL  string                 `json:"transformationUrl,omitempty" bson:"transformationUrl,omitempty"`
	AspectRatio        string                 `json:"aspectRatio,omitempty" bson:"aspectRatio,omitempty"`
	Color              string                 `json:"color,omitempty" bson:"color,omitempty"`
	Prompt             string                 `json:"prompt,omitempty" bson:"prompt,omitempty"`
	AuthorID           string                 `json:"authorId" gorm:"not null;index;type:varchar(36)" bson:"author"`
	CreatedAt          time.Time              `json:"createdAt" gorm:"index" bson:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt" gorm:"index" bson:"updatedAt"`

	// Populated on reads, never stored.
	Author *Author `json:"author,omitempty" gorm:"-" bson:"-"`
}

// Author is the subset of a user populated onto image reads.
type Author struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ClerkID   string `json:"clerkId"`
}
