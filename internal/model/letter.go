package model

import (
	"fmt"
	"time"
)

// Letter is an immutable content record. Both mentee submissions and mentor
// replies are letters; a reply inherits the category name of the original.
type Letter struct {
	ID           string    `json:"id"`
	CategoryName string    `json:"categoryName"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LetterStatus is the mutable thread state binding a mentee letter, an
// optional mentor reply, the two parties, and the read/save/thanks flags.
//
// MentorLetterID is empty until a reply is saved and is never overwritten
// afterwards. The throw path changes MentorID, never the letter content.
type LetterStatus struct {
	ID             string    `json:"id"`
	MenteeLetterID string    `json:"menteeLetterId"`
	MentorLetterID string    `json:"mentorLetterId,omitempty"`
	MenteeID       string    `json:"menteeId"`
	MentorID       string    `json:"mentorId"`
	MenteeRead     bool      `json:"menteeRead"`
	MentorRead     bool      `json:"mentorRead"`
	MenteeSaved    bool      `json:"menteeSaved"`
	MentorSaved    bool      `json:"mentorSaved"`
	Thanked        bool      `json:"thanked"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Replied reports whether a mentor reply has been attached.
func (s *LetterStatus) Replied() bool {
	return s.MentorLetterID != ""
}

// SideOf returns the role the given user plays in this thread.
func (s *LetterStatus) SideOf(userID string) (Role, bool) {
	switch userID {
	case s.MenteeID:
		return RoleMentee, true
	case s.MentorID:
		return RoleMentor, true
	}
	return "", false
}

// ThrowLetter is an append-only audit record of a letter being thrown to a
// new mentor. Never mutated or deleted after creation.
type ThrowLetter struct {
	ID             string    `json:"id"`
	LetterStatusID string    `json:"letterStatusId"`
	ThrownByID     string    `json:"thrownById"` // the mentor who discarded the letter
	CreatedAt      time.Time `json:"createdAt"`
}

// ThrowCategoryCount is a running counter of throws per category name.
type ThrowCategoryCount struct {
	CategoryName string `json:"categoryName"`
	Count        int64  `json:"count"`
}

// ListType selects which letters a listing returns.
type ListType string

const (
	ListAll     ListType = "ALL"
	ListPending ListType = "PENDING"
	ListSaved   ListType = "SAVED"
)

// ParseListType converts a query parameter into a ListType.
// An empty string defaults to ALL.
func ParseListType(s string) (ListType, error) {
	if s == "" {
		return ListAll, nil
	}
	switch ListType(s) {
	case ListAll, ListPending, ListSaved:
		return ListType(s), nil
	}
	return "", fmt.Errorf("model: unknown list type %q", s)
}

// LetterSummary is one row of a letter listing, shaped for the caller's side
// of the thread.
type LetterSummary struct {
	StatusID     string    `json:"statusId"`
	CategoryName string    `json:"categoryName"`
	Title        string    `json:"title"`
	Replied      bool      `json:"replied"`
	Read         bool      `json:"read"`
	Saved        bool      `json:"saved"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LetterPage is a fixed-size page of summaries.
type LetterPage struct {
	Letters    []LetterSummary `json:"letters"`
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
}

// LetterDetails is the detail projection for a thread: the caller's own
// letter plus the counterpart's reply when present.
type LetterDetails struct {
	Status       *LetterStatus `json:"status"`
	MenteeLetter *Letter       `json:"menteeLetter"`
	MentorLetter *Letter       `json:"mentorLetter,omitempty"`
}
