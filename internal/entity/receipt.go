package entity

import "github.com/google/uuid"

// Receipt is an uploaded receipt image. ImageData marshals to base64 in JSON,
// matching the wire and persistence format the frontend expects.
type Receipt struct {
	ID        uuid.UUID `json:"id"`
	ImageData []byte    `json:"imageData"`
	FileName  string    `json:"fileName"`
}
