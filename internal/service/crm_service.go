package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salescrm/internal/apierror"
	"salescrm/internal/dto"
	"salescrm/internal/infra"
	"salescrm/internal/model"
	"salescrm/internal/repository"

	"github.com/rs/zerolog/log"
)

// EntryNotifier is told about every stored entry. Implementations must not
// block on delivery.
type EntryNotifier interface {
	EnqueueEntrySubmitted(ctx context.Context, e model.CRMEntry) error
}

type CRMService interface {
	// Submit stores an entry owned by salePerson and returns its id.
	Submit(ctx context.Context, salePerson string, req dto.SubmitEntryRequest) (uint, error)
	List(ctx context.Context, q dto.EntryFilterQuery) ([]dto.EntryResponse, error)
	ClearAll(ctx context.Context) (int64, error)
	// Report renders the filtered listing as a PDF document.
	Report(ctx context.Context, q dto.EntryFilterQuery) ([]byte, error)
}

type crmService struct {
	repo     repository.CRMEntryRepository
	notifier EntryNotifier // nil when notifications are off
	now      func() time.Time
}

func NewCRMService(repo repository.CRMEntryRepository, notifier EntryNotifier) CRMService {
	return &crmService{repo: repo, notifier: notifier, now: time.Now}
}

func mapEntry(e model.CRMEntry) dto.EntryResponse {
	var submitted *string
	if !e.SubmissionTime.IsZero() {
		ts := e.SubmissionTime.UTC().Format(time.RFC3339)
		submitted = &ts
	}
	return dto.EntryResponse{
		ID:             e.ID,
		PersonName:     e.PersonName,
		CompanyName:    e.CompanyName,
		Department:     e.Department,
		Case:           e.Case,
		NextSteps:      e.NextSteps,
		Status:         e.Status,
		Description:    e.Description,
		SalePerson:     e.SalePerson,
		SubmissionTime: submitted,
	}
}

// firstNonBlank returns the first argument that is not empty after trimming.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func (s *crmService) Submit(ctx context.Context, salePerson string, req dto.SubmitEntryRequest) (uint, error) {
	if strings.TrimSpace(salePerson) == "" {
		return 0, apierror.Authentication("Authentication required")
	}
	person := firstNonBlank(req.PersonName, req.Name)
	if person == "" {
		return 0, apierror.Validation("Missing required field: person_name")
	}
	company := firstNonBlank(req.CompanyName, req.Company)
	if company == "" {
		return 0, apierror.Validation("Missing required field: company_name")
	}

	entry := model.CRMEntry{
		PersonName:     person,
		CompanyName:    company,
		Department:     strings.TrimSpace(req.Department),
		Case:           strings.TrimSpace(req.Case),
		NextSteps:      strings.TrimSpace(req.NextSteps),
		Status:         strings.TrimSpace(req.Status),
		Description:    firstNonBlank(req.Description, req.Notes),
		SalePerson:     salePerson,
		SubmissionTime: s.now().UTC(),
	}
	if req.SalePerson != "" && req.SalePerson != salePerson {
		log.Debug().Str("claimed", req.SalePerson).Str("sale_person", salePerson).Msg("ignoring client-supplied sale_person")
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return 0, apierror.Storage("Failed to save CRM entry", err)
	}
	log.Info().Uint("entry_id", entry.ID).Str("sale_person", salePerson).Msg("crm entry submitted")

	if s.notifier != nil {
		if err := s.notifier.EnqueueEntrySubmitted(ctx, entry); err != nil {
			log.Warn().Err(err).Uint("entry_id", entry.ID).Msg("failed to enqueue entry notification")
		}
	}
	return entry.ID, nil
}

// ParseEntryFilter validates q and turns it into repository conditions.
// Without an explicit match mode sale_person is compared exactly and the
// free-text fields by substring.
func ParseEntryFilter(q dto.EntryFilterQuery) (repository.EntryFilter, error) {
	salePersonMode, textMode := repository.MatchExact, repository.MatchContains
	switch strings.ToLower(strings.TrimSpace(q.Match)) {
	case "":
	case "exact":
		textMode = repository.MatchExact
	case "partial", "contains":
		salePersonMode = repository.MatchContains
	default:
		return repository.EntryFilter{}, apierror.Validation(fmt.Sprintf("Invalid match mode %q: use exact or partial", q.Match))
	}

	return repository.EntryFilter{
		SalePerson: repository.FieldFilter{Value: strings.TrimSpace(q.SalePerson), Mode: salePersonMode},
		Status:     repository.FieldFilter{Value: strings.TrimSpace(q.Status), Mode: textMode},
		Case:       repository.FieldFilter{Value: strings.TrimSpace(q.Case), Mode: textMode},
	}, nil
}

func (s *crmService) list(ctx context.Context, q dto.EntryFilterQuery) ([]model.CRMEntry, error) {
	filter, err := ParseEntryFilter(q)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apierror.Storage("Failed to list CRM entries", err)
	}
	return entries, nil
}

func (s *crmService) List(ctx context.Context, q dto.EntryFilterQuery) ([]dto.EntryResponse, error) {
	entries, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, mapEntry(e))
	}
	return resp, nil
}

func (s *crmService) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, apierror.Storage("Failed to clear CRM entries", err)
	}
	log.Warn().Int64("deleted_count", n).Msg("crm entries cleared")
	return n, nil
}

func (s *crmService) Report(ctx context.Context, q dto.EntryFilterQuery) ([]byte, error) {
	entries, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}
	return infra.RenderEntriesPDF(entries, describeFilter(q), s.now())
}

func describeFilter(q dto.EntryFilterQuery) string {
	var parts []string
	for _, kv := range [][2]string{{"sale_person", q.SalePerson}, {"status", q.Status}, {"case", q.Case}, {"match", q.Match}} {
		if v := strings.TrimSpace(kv[1]); v != "" {
			parts = append(parts, kv[0]+"="+v)
		}
	}
	return strings.Join(parts, ", ")
}
