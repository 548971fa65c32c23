package models

import "time"

// Submission is a text document handed to ingestion by an upload or the stream
type Submission struct {
	DocumentID string `json:"documentId,omitempty"`
	Filename   string `json:"filename"`
	Content    []byte `json:"-"`
	Source     string `json:"source"`
}

const (
	SourceUpload = "upload"
	SourceStream = "stream"
)

// Document is an encrypted submission stored in MongoDB
type Document struct {
	ID         string    `bson:"_id" json:"id"`
	Filename   string    `bson:"filename" json:"filename"`
	Ciphertext []byte    `bson:"ciphertext,omitempty" json:"-"`
	Size       int       `bson:"size" json:"size"`
	Source     string    `bson:"source" json:"source"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

// UploadResponse is returned by the document upload endpoint
type UploadResponse struct {
	Message       string      `json:"message"`
	UploadedFiles []*Document `json:"uploaded_files"`
	TotalUploaded int         `json:"total_uploaded"`
	Errors        []string    `json:"errors,omitempty"`
}
