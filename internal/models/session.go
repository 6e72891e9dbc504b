package models

// SessionStatus represents the status of an analysis session.
type SessionStatus string

const (
	SessionStatusAnalyzing SessionStatus = "analyzing"
	SessionStatusComplete  SessionStatus = "complete"
	SessionStatusError     SessionStatus = "error"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Error kinds reported to the user.
const (
	ErrorKindInvalidFileType = "invalid_file_type"
	ErrorKindFileTooLarge    = "file_too_large"
	ErrorKindParse           = "parse_error"
	ErrorKindInternal        = "internal"
)

// AnalysisSession is the transient state of one upload.
type AnalysisSession struct {
	ID               string                    `json:"id"`
	FileID           string                    `json:"fileId"`
	FileName         string                    `json:"fileName"`
	Status           SessionStatus             `json:"status"`
	TotalRowCount    int                       `json:"totalRowCount"`
	Columns          []Column                  `json:"columns,omitempty"`
	Suggestions      []VisualizationSuggestion `json:"suggestions,omitempty"`
	Error            *AnalysisError            `json:"error,omitempty"`
	CreatedAt        int64                     `json:"createdAt"`             // Unix ms
	CompletedAt      int64                     `json:"completedAt,omitempty"` // Unix ms
	ProcessingTimeMs int64                     `json:"processingTimeMs,omitempty"`
}

// AnalysisError describes why a session failed.
type AnalysisError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NewAnalysisSession creates a session in analyzing status.
func NewAnalysisSession(id, fileID, fileName string, totalRows int, createdAt int64) *AnalysisSession {
	return &AnalysisSession{
		ID:            id,
		FileID:        fileID,
		FileName:      fileName,
		Status:        SessionStatusAnalyzing,
		TotalRowCount: totalRows,
		CreatedAt:     createdAt,
	}
}

// Done reports whether the session reached a terminal status.
func (s *AnalysisSession) Done() bool {
	return s.Status == SessionStatusComplete ||
		s.Status == SessionStatusError ||
		s.Status == SessionStatusCancelled
}

// Clone returns a copy safe to hand out while the original keeps changing.
func (s *AnalysisSession) Clone() *AnalysisSession {
	c := *s
	c.Columns = append([]Column(nil), s.Columns...)
	c.Suggestions = append([]VisualizationSuggestion(nil), s.Suggestions...)
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return &c
}
