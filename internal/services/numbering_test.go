package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/invoice-api/internal/models"
)

func TestNextInvoiceNumberFirstInvoice(t *testing.T) {
	db := setupTestDB(t)
	user, _ := seedUserAndClient(t, db)

	num, err := NextInvoiceNumber(db, user.ID)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if num != "INV-00001" {
		t.Errorf("number = %s, want INV-00001", num)
	}
}

func TestNextInvoiceNumberFollowsLast(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)

	last := models.Invoice{UserID: user.ID, ClientID: client.ID, Number: "INV-00007",
		IssueDate: time.Now(), DueDate: time.Now(), Status: models.InvoiceStatusDraft}
	if err := db.Create(&last).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	num, err := NextInvoiceNumber(db, user.ID)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if num != "INV-00008" {
		t.Errorf("number = %s, want INV-00008", num)
	}
}

func TestNextInvoiceNumberUnparseableRestartsAtOne(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)

	last := models.Invoice{UserID: user.ID, ClientID: client.ID, Number: "INV-LEGACY",
		IssueDate: time.Now(), DueDate: time.Now(), Status: models.InvoiceStatusDraft}
	if err := db.Create(&last).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}

	num, err := NextInvoiceNumber(db, user.ID)
	if err != nil {
		t.Fatalf("NextInvoiceNumber: %v", err)
	}
	if num != "INV-00001" {
		t.Errorf("number = %s, want INV-00001", num)
	}
}

func TestNextInvoiceNumberUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NextInvoiceNumber(db, 404); !IsKind(err, KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestNumberingIsPerUser(t *testing.T) {
	db := setupTestDB(t)
	userA, clientA := seedUserAndClient(t, db)
	userB := models.User{Name: "B", Email: "b@test", Password: "x"}
	if err := db.Create(&userB).Error; err != nil {
		t.Fatalf("user b: %v", err)
	}
	clientB := models.Client{UserID: userB.ID, Name: "BCo", Email: "bco@test"}
	if err := db.Create(&clientB).Error; err != nil {
		t.Fatalf("client b: %v", err)
	}

	svc := NewInvoiceService(db)
	for i := 0; i < 2; i++ {
		if _, err := svc.CreateInvoice(userA.ID, clientA.ID, time.Time{}, due(t, "2024-02-01"), nil); err != nil {
			t.Fatalf("create for a: %v", err)
		}
	}
	invB, err := svc.CreateInvoice(userB.ID, clientB.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create for b: %v", err)
	}
	if invB.Number != "INV-00001" {
		t.Errorf("user b first number = %s, want INV-00001", invB.Number)
	}
}

func TestNumbersNotReusedAfterDelete(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)
	svc := NewInvoiceService(db)

	first, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(user.ID, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Number != "INV-00001" || second.Number != "INV-00002" || third.Number != "INV-00003" {
		t.Errorf("numbers = %s %s %s", first.Number, second.Number, third.Number)
	}
}

func TestSequenceSurvivesDeletingEveryInvoice(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)
	svc := NewInvoiceService(db)

	first, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(user.ID, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	next, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.Number != "INV-00002" {
		t.Errorf("number after deleting all = %s, want INV-00002", next.Number)
	}
}

func TestSequentialNumbersStayUnique(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)
	svc := NewInvoiceService(db)

	seen := map[string]bool{}
	for i := 0; i < 12; i++ {
		inv, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, due(t, "2024-02-01"), nil)
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if seen[inv.Number] {
			t.Fatalf("number %s allocated twice", inv.Number)
		}
		seen[inv.Number] = true
	}
	if want := fmt.Sprintf("%s%05d", "INV-", 12); !seen[want] {
		t.Errorf("missing %s", want)
	}
}

func TestDuplicateNumberRejectedByUniqueIndex(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)

	mk := func() *models.Invoice {
		return &models.Invoice{UserID: user.ID, ClientID: client.ID, Number: "INV-00042",
			IssueDate: time.Now(), DueDate: time.Now(), Status: models.InvoiceStatusDraft}
	}
	if err := db.Create(mk()).Error; err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := db.Create(mk()).Error
	if err == nil {
		t.Fatal("expected unique violation")
	}
	if wrapped := wrapDBError(err, "invoice", 0); !IsKind(wrapped, KindConstraintViolation) {
		t.Errorf("expected constraint_violation, got %v", wrapped)
	}
}

func TestSameNumberAllowedAcrossUsers(t *testing.T) {
	db := setupTestDB(t)
	userA, clientA := seedUserAndClient(t, db)
	userB := models.User{Name: "B", Email: "b@test", Password: "x"}
	if err := db.Create(&userB).Error; err != nil {
		t.Fatalf("user b: %v", err)
	}

	mk := func(userID, clientID uint) *models.Invoice {
		return &models.Invoice{UserID: userID, ClientID: clientID, Number: "INV-00001",
			IssueDate: time.Now(), DueDate: time.Now(), Status: models.InvoiceStatusDraft}
	}
	if err := db.Create(mk(userA.ID, clientA.ID)).Error; err != nil {
		t.Fatalf("insert for a: %v", err)
	}
	if err := db.Create(mk(userB.ID, clientA.ID)).Error; err != nil {
		t.Errorf("same number for a different user should insert: %v", err)
	}
}

func TestConcurrentCreatesAllocateDistinctNumbers(t *testing.T) {
	db := setupTestDB(t)
	user, client := seedUserAndClient(t, db)
	svc := NewInvoiceService(db)
	dueDate := due(t, "2024-02-01")

	const workers = 4
	numbers := make(chan string, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(10 * time.Second)
			for {
				inv, err := svc.CreateInvoice(user.ID, client.ID, time.Time{}, dueDate, nil)
				if err == nil {
					numbers <- inv.Number
					return
				}
				// sqlite allows a single writer at a time; back off and
				// retry on lock contention or a lost allocation race
				if !retryableCreate(err) || time.Now().After(deadline) {
					errs <- err
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		t.Fatalf("create: %v", err)
	}
	seen := map[string]bool{}
	for n := range numbers {
		if seen[n] {
			t.Fatalf("number %s allocated twice", n)
		}
		seen[n] = true
	}
	if len(seen) != workers {
		t.Fatalf("allocated %d distinct numbers, want %d", len(seen), workers)
	}
}

func retryableCreate(err error) bool {
	if IsKind(err, KindDuplicateInvoiceNumber) || IsKind(err, KindConstraintViolation) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "table is locked")
}
