package repository

import (
	"context"
	"testing"
	"time"

	"salescrm/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func newEntry(salePerson, person, status, caseLabel string, minutes int) *model.CRMEntry {
	return &model.CRMEntry{
		PersonName:     person,
		CompanyName:    "Acme",
		Status:         status,
		Case:           caseLabel,
		SalePerson:     salePerson,
		SubmissionTime: baseTime.Add(time.Duration(minutes) * time.Minute),
	}
}

func seedEntries(t *testing.T, repo CRMEntryRepository) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []*model.CRMEntry{
		newEntry("alice", "P1", "Open", "Renewal Q3", 0),
		newEntry("Bob", "P2", "closed", "new logo", 10),
		newEntry("bobby", "P3", "open-won", "Renewal", 20),
		newEntry("alice", "P4", "Closed", "100% discount_request", 30),
	} {
		require.NoError(t, repo.Create(ctx, e))
		require.NotZero(t, e.ID)
	}
}

func names(entries []model.CRMEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.PersonName
	}
	return out
}

func TestCRMEntryRepo_ListNewestFirst(t *testing.T) {
	repo := NewCRMEntryRepository(newTestDB(t))
	seedEntries(t, repo)

	list, err := repo.List(context.Background(), EntryFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"P4", "P3", "P2", "P1"}, names(list))
}

func TestCRMEntryRepo_ListFilters(t *testing.T) {
	repo := NewCRMEntryRepository(newTestDB(t))
	seedEntries(t, repo)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter EntryFilter
		want   []string
	}{
		{"sale person exact ignores case", EntryFilter{SalePerson: FieldFilter{Value: "BOB", Mode: MatchExact}}, []string{"P2"}},
		{"sale person contains", EntryFilter{SalePerson: FieldFilter{Value: "bob", Mode: MatchContains}}, []string{"P3", "P2"}},
		{"status exact", EntryFilter{Status: FieldFilter{Value: "open", Mode: MatchExact}}, []string{"P1"}},
		{"status contains", EntryFilter{Status: FieldFilter{Value: "OPEN", Mode: MatchContains}}, []string{"P3", "P1"}},
		{"case contains", EntryFilter{Case: FieldFilter{Value: "renewal", Mode: MatchContains}}, []string{"P3", "P1"}},
		{"wildcards are literal", EntryFilter{Case: FieldFilter{Value: "100%", Mode: MatchContains}}, []string{"P4"}},
		{"underscore is literal", EntryFilter{Case: FieldFilter{Value: "l_q", Mode: MatchContains}}, []string{}},
		{"percent alone matches nothing else", EntryFilter{Case: FieldFilter{Value: "%", Mode: MatchContains}}, []string{"P4"}},
		{"combined", EntryFilter{
			SalePerson: FieldFilter{Value: "alice", Mode: MatchExact},
			Status:     FieldFilter{Value: "closed", Mode: MatchContains},
		}, []string{"P4"}},
		{"no match", EntryFilter{SalePerson: FieldFilter{Value: "zed", Mode: MatchExact}}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := repo.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.NotNil(t, list)
			assert.Equal(t, tc.want, names(list))
		})
	}
}

func TestCRMEntryRepo_DeleteAll(t *testing.T) {
	repo := NewCRMEntryRepository(newTestDB(t))
	seedEntries(t, repo)
	ctx := context.Background()

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	list, err := repo.List(ctx, EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	n, err = repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
