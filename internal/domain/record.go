package domain

import "time"

// Submission is one inbound message normalized for the pipeline.
type Submission struct {
	RawText string
	URLs    []string // in order of appearance
	Caption string   // text around the URLs minus share boilerplate; authoritative title when non-empty
}

// Empty reports whether the submission carries nothing classifiable.
func (s Submission) Empty() bool {
	return len(s.URLs) == 0 && s.Caption == "" && s.RawText == ""
}

// Content is the canonical record body: the first URL if present, else the raw text.
func (s Submission) Content() string {
	if len(s.URLs) > 0 {
		return s.URLs[0]
	}
	return s.RawText
}

// NeedTitle reports whether the classifier must generate a title.
// A non-empty caption is the authoritative title.
func (s Submission) NeedTitle() bool {
	return s.Caption == ""
}

type Record struct {
	ID        string // assigned by the store on creation
	Title     string
	Category  string
	AddedTime time.Time // write-once
	Content   string
}

type SavedRecord struct {
	ID              int64
	RecordID        string
	Title           string
	Category        string
	Content         string
	ConversationKey string
	Model           string
	SavedAt         time.Time
}

type CategoryCorrection struct {
	ID                int64
	RecordID          string
	Title             string
	OriginalCategory  string
	CorrectedCategory string
	CorrectedAt       time.Time
}
