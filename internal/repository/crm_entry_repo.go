package repository

import (
	"context"
	"strings"

	"salescrm/internal/model"

	"gorm.io/gorm"
)

// MatchMode selects how a filter value is compared. Both modes ignore case.
type MatchMode int

const (
	MatchExact MatchMode = iota
	MatchContains
)

// FieldFilter is one optional condition; an empty Value disables it.
type FieldFilter struct {
	Value string
	Mode  MatchMode
}

// EntryFilter enumerates every supported listing condition. Conditions are
// ANDed together.
type EntryFilter struct {
	SalePerson FieldFilter
	Status     FieldFilter
	Case       FieldFilter
}

type CRMEntryRepository interface {
	Create(ctx context.Context, e *model.CRMEntry) error
	// List returns matching entries, newest submission first.
	List(ctx context.Context, f EntryFilter) ([]model.CRMEntry, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type crmEntryRepo struct{ db *gorm.DB }

func NewCRMEntryRepository(db *gorm.DB) CRMEntryRepository { return &crmEntryRepo{db: db} }

func (r *crmEntryRepo) Create(ctx context.Context, e *model.CRMEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(e).Error
	})
}

func (r *crmEntryRepo) List(ctx context.Context, f EntryFilter) ([]model.CRMEntry, error) {
	q := r.db.WithContext(ctx).Model(&model.CRMEntry{})
	q = applyFieldFilter(q, "sale_person", f.SalePerson)
	q = applyFieldFilter(q, "status", f.Status)
	q = applyFieldFilter(q, "case_label", f.Case)

	entries := make([]model.CRMEntry, 0)
	err := q.Order("submission_time DESC").Order("id DESC").Find(&entries).Error
	return entries, err
}

func (r *crmEntryRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.CRMEntry{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

// applyFieldFilter adds one condition; column is always a constant from this file.
func applyFieldFilter(q *gorm.DB, column string, f FieldFilter) *gorm.DB {
	if f.Value == "" {
		return q
	}
	v := strings.ToLower(f.Value)
	if f.Mode == MatchExact {
		return q.Where("LOWER("+column+") = ?", v)
	}
	return q.Where("LOWER("+column+") LIKE ? ESCAPE '!'", "%"+escapeLike(v)+"%")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
