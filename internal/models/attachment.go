package models

import "time"

// Attachment represents metadata about a stored inspection photo.
type Attachment struct {
	ID          string    `json:"id" msgpack:"id" bson:"id"`
	Name        string    `json:"name" msgpack:"name" bson:"name"`
	Size        int64     `json:"size" msgpack:"size" bson:"size"`
	ContentType string    `json:"contentType" msgpack:"contentType" bson:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt" msgpack:"uploadedAt" bson:"uploadedAt"`
}
