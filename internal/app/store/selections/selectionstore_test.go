package selectionstore_test

import (
	"errors"
	"testing"

	selectionstore "github.com/dalemusser/collabhub/internal/app/store/selections"
	"github.com/dalemusser/collabhub/internal/domain/models"
	"github.com/dalemusser/collabhub/internal/domain/repository"
	"github.com/dalemusser/collabhub/internal/testutil"
)

func TestStore_FindBySelectionID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := selectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	doc := &models.SelectionDoc{ProjectID: "p1", Selections: []models.Selection{
		{SelectionID: "ana65f1a-1a2b3c", GroupLeader: "ana@uni.edu", GroupMembers: []string{"ana@uni.edu"}},
		{SelectionID: "bo65f1a-4d5e6f", GroupLeader: "bo@uni.edu", GroupMembers: []string{"bo@uni.edu"}},
	}}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.FindBySelectionID(ctx, "bo65f1a-4d5e6f")
	if err != nil {
		t.Fatalf("FindBySelectionID failed: %v", err)
	}
	if got.ProjectID != "p1" || got.Find("bo65f1a-4d5e6f") != 1 {
		t.Errorf("unexpected doc: %+v", got)
	}

	if _, err := store.FindBySelectionID(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_FindBySelectionID_Ambiguous(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := selectionstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, pid := range []string{"p1", "p2"} {
		doc := &models.SelectionDoc{ProjectID: pid, Selections: []models.Selection{
			{SelectionID: "ana65f1a-abc123", GroupLeader: "ana@uni.edu", GroupMembers: []string{"ana@uni.edu"}},
		}}
		if err := store.Save(ctx, doc); err != nil {
			t.Fatalf("Save %s failed: %v", pid, err)
		}
	}

	if _, err := store.FindBySelectionID(ctx, "ana65f1a-abc123"); !errors.Is(err, repository.ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
}
