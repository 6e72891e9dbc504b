package models

import "time"

// FileInfo represents metadata about an uploaded file.
type FileInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	SizeLabel   string    `json:"sizeLabel"` // e.g. "12 kB"
	UploadedAt  time.Time `json:"uploadedAt"`
	Status      string    `json:"status"` // "uploaded", "analyzing", "analyzed", "error"
}
