package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/requisition/internal/requisition/entity"
	"github.com/bitfantasy/requisition/internal/requisition/repository"
	"github.com/bitfantasy/requisition/internal/requisition/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func seedRequest(t *testing.T, repo *repository.RequestRepository, number, requester, dept string, status entity.Status) *entity.PurchaseRequest {
	t.Helper()
	id := uuid.New().String()
	pr := &entity.PurchaseRequest{
		ID:                 id,
		RequestNumber:      number,
		Department:         dept,
		VendorType:         entity.VendorExisting,
		Currency:           entity.CurrencyZMW,
		DocumentType:       entity.DocumentInvoice,
		ServiceDescription: "Panel cleaning",
		RequesterID:        requester,
		RequesterRole:      entity.RoleRequester,
		RequestedAt:        time.Now(),
		Status:             status,
		LineItems: []entity.LineItem{
			{ID: uuid.New().String(), Description: "Labour", UnitPrice: decimal.NewFromInt(150), Quantity: decimal.NewFromInt(2)},
		},
		ApprovalHistory: []entity.ApprovalEntry{
			{ID: uuid.New().String(), Sequence: 1, Stage: entity.StatusSubmitted, ActorRole: entity.RoleRequester, ActorID: requester, Decision: entity.DecisionApproved, Comment: "Submitted", ActedAt: time.Now()},
		},
		AccountingSteps: []entity.ChecklistStep{
			{ID: uuid.New().String(), Position: 0, Label: "Invoice uploaded to SAP"},
			{ID: uuid.New().String(), Position: 1, Label: "Payment submitted to bank"},
		},
	}
	if err := repo.Create(context.Background(), pr); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return pr
}

func TestRequestRepository_CreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRequestRepository(db)
	ctx := context.Background()

	a := seedRequest(t, repo, "PR-000001", "u1", "Environment", entity.StatusHODReview)
	time.Sleep(5 * time.Millisecond)
	seedRequest(t, repo, "PR-000002", "u2", "Finance", entity.StatusAccountingProcessing)

	got, err := repo.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.LineItems) != 1 || !got.LineItems[0].UnitPrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("line items not loaded: %+v", got.LineItems)
	}
	if len(got.AccountingSteps) != 2 || got.AccountingSteps[0].Label != "Invoice uploaded to SAP" {
		t.Errorf("checklist not loaded in order: %+v", got.AccountingSteps)
	}
	if got.Version != 1 {
		t.Errorf("expected version 1, got %d", got.Version)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	all, err := repo.Find(ctx, entity.RequestFilter{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(all) != 2 || all[0].RequestNumber != "PR-000002" {
		t.Errorf("expected newest first, got %d items", len(all))
	}

	accounting, _ := repo.Find(ctx, entity.RequestFilter{Statuses: []entity.Status{entity.StatusAccountingProcessing, entity.StatusBankLoaded}})
	if len(accounting) != 1 || accounting[0].Department != "Finance" {
		t.Errorf("status filter failed: %+v", accounting)
	}

	mine, _ := repo.Find(ctx, entity.RequestFilter{RequesterID: "u1", Department: "Environment"})
	if len(mine) != 1 || mine[0].ID != a.ID {
		t.Errorf("requester filter failed: %+v", mine)
	}
}

func TestRequestRepository_SaveAppendsAndBumpsVersion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRequestRepository(db)
	ctx := context.Background()

	pr := seedRequest(t, repo, "PR-000010", "u1", "Environment", entity.StatusAccountingProcessing)
	loaded, _ := repo.FindByID(ctx, pr.ID)

	now := time.Now()
	loaded.AccountingSteps[0].Completed = true
	loaded.AccountingSteps[0].CompletedBy = "a1"
	loaded.AccountingSteps[0].CompletedAt = &now
	loaded.ApprovalHistory = append(loaded.ApprovalHistory, entity.ApprovalEntry{
		ID: uuid.New().String(), Sequence: 2, Stage: entity.StatusAccountingProcessing,
		ActorRole: entity.RoleAnalyst, ActorID: "a1", Decision: entity.DecisionApproved, ActedAt: now,
	})
	if err := repo.Save(ctx, loaded); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if loaded.Version != 2 {
		t.Errorf("expected in-memory version 2, got %d", loaded.Version)
	}

	reloaded, _ := repo.FindByID(ctx, pr.ID)
	if reloaded.Version != 2 {
		t.Errorf("expected stored version 2, got %d", reloaded.Version)
	}
	if len(reloaded.ApprovalHistory) != 2 {
		t.Errorf("expected 2 history entries, got %d", len(reloaded.ApprovalHistory))
	}
	if !reloaded.AccountingSteps[0].Completed || reloaded.AccountingSteps[0].CompletedBy != "a1" {
		t.Errorf("checklist step not saved: %+v", reloaded.AccountingSteps[0])
	}
}

func TestRequestRepository_SaveDetectsConflict(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRequestRepository(db)
	ctx := context.Background()

	pr := seedRequest(t, repo, "PR-000020", "u1", "Environment", entity.StatusHODReview)
	first, _ := repo.FindByID(ctx, pr.ID)
	second, _ := repo.FindByID(ctx, pr.ID)

	first.Status = entity.StatusCFOReview
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	second.Status = entity.StatusRejected
	if err := repo.Save(ctx, second); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, _ := repo.FindByID(ctx, pr.ID)
	if stored.Status != entity.StatusCFOReview {
		t.Errorf("losing writer changed status to %s", stored.Status)
	}
}

func TestCounterRepository_NextValueIsAtomic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	counters := repository.NewCounterRepository(db)
	ctx := context.Background()

	const workers = 20
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := counters.NextValue(ctx, entity.RequestCounterName)
			if err != nil {
				t.Errorf("NextValue: %v", err)
				return
			}
			seen <- v
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for v := range seen {
		if unique[v] {
			t.Errorf("duplicate sequence value %d", v)
		}
		unique[v] = true
	}
	if len(unique) != workers {
		t.Errorf("expected %d distinct values, got %d", workers, len(unique))
	}
	for v := int64(1); v <= workers; v++ {
		if !unique[v] {
			t.Errorf("missing value %d", v)
		}
	}
}

func TestRequestRepository_Renumber(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewRequestRepository(db)
	ctx := context.Background()

	legacy := seedRequest(t, repo, "legacy-abc", "u1", "Environment", entity.StatusHODReview)
	seedRequest(t, repo, "PR-000003", "u1", "Environment", entity.StatusHODReview)

	pending, err := repo.FindWithoutNumber(ctx)
	if err != nil {
		t.Fatalf("FindWithoutNumber: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != legacy.ID {
		t.Fatalf("expected only the legacy record, got %+v", pending)
	}
	if err := repo.UpdateNumber(ctx, legacy.ID, "PR-000004"); err != nil {
		t.Fatalf("UpdateNumber: %v", err)
	}
	pending, _ = repo.FindWithoutNumber(ctx)
	if len(pending) != 0 {
		t.Errorf("expected no pending records, got %d", len(pending))
	}
}
