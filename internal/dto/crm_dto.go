package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SubmitEntryRequest is the /submit_crm body. Name, Company and Notes are the
// alternate spellings some clients send; SalePerson is read only so it can be
// ignored explicitly.
type SubmitEntryRequest struct {
	PersonName  string `json:"person_name" validate:"max=100"`
	Name        string `json:"name" validate:"max=100"`
	CompanyName string `json:"company_name" validate:"max=100"`
	Company     string `json:"company" validate:"max=100"`
	Department  string `json:"department" validate:"max=100"`
	Case        string `json:"case" validate:"max=200"`
	NextSteps   string `json:"next_steps"`
	Status      string `json:"status" validate:"max=50"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
	SalePerson  string `json:"sale_person"`
}

// EntryFilterQuery is the query string of /get_crm_entries.
type EntryFilterQuery struct {
	SalePerson string `form:"sale_person"`
	Status     string `form:"status"`
	Case       string `form:"case"`
	Match      string `form:"match"` // "" | exact | partial
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SubmitEntryResponse struct {
	Message string `json:"message"`
	EntryID uint   `json:"entry_id"`
}

type EntryResponse struct {
	ID             uint    `json:"id"`
	PersonName     string  `json:"person_name"`
	CompanyName    string  `json:"company_name"`
	Department     string  `json:"department"`
	Case           string  `json:"case"`
	NextSteps      string  `json:"next_steps"`
	Status         string  `json:"status"`
	Description    string  `json:"description"`
	SalePerson     string  `json:"sale_person"`
	SubmissionTime *string `json:"submission_time"` // RFC 3339, null when unset
}

type ClearEntriesResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}
