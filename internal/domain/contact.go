package domain

import "time"

// Contact is a person identity record keyed loosely by email or phone.
// Fields are filled additively: once populated they are never overwritten,
// only empty fields are backfilled on later sightings.
type Contact struct {
	ContactID string    `json:"id" dynamodbav:"contact_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     string    `json:"phone,omitempty" dynamodbav:"phone"`
	PhoneHash string    `json:"-" dynamodbav:"phone_hash,omitempty"`
	FirstName string    `json:"first_name,omitempty" dynamodbav:"first_name"`
	LastName  string    `json:"last_name,omitempty" dynamodbav:"last_name"`
	Source    string    `json:"source" dynamodbav:"source"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// ContactSnapshot is the denormalized contact view embedded in a Lead.
type ContactSnapshot struct {
	Email     string `json:"email" dynamodbav:"email"`
	Phone     string `json:"phone,omitempty" dynamodbav:"phone"`
	FirstName string `json:"first_name,omitempty" dynamodbav:"first_name"`
	LastName  string `json:"last_name,omitempty" dynamodbav:"last_name"`
	ZipCode   string `json:"zip_code,omitempty" dynamodbav:"zip_code"`
}
