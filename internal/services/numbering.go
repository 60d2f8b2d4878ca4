package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/diewo77/invoice-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceNumberPrefix = "INV-"

// NextInvoiceNumber allocates the next sequential number for a user
// (INV-00001, INV-00002, ...). It must run inside the same transaction
// as the invoice insert.
//
// A per-user invoice_sequences row holds the highest number ever issued,
// so deleting an invoice never makes its number available again. On
// postgres the sequence row is locked with SELECT ... FOR UPDATE so two
// concurrent creations for the same user cannot read the same value.
// SQLite has a single writer, so the lock clause is skipped there. The
// unique index on (user_id, invoice_number) remains the final arbiter
// either way; CreateInvoice retries on a lost race.
func NextInvoiceNumber(tx *gorm.DB, userID uint) (string, error) {
	var owner models.User
	if err := tx.Select("id").First(&owner, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFound("user", userID)
		}
		return "", err
	}

	seqQ := tx
	if tx.Dialector.Name() == "postgres" {
		seqQ = seqQ.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var seq models.InvoiceSequence
	err := seqQ.Where("user_id = ?", userID).First(&seq).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		seq = models.InvoiceSequence{UserID: userID, LastSeq: lastIssuedSeq(tx, userID)}
		if cerr := tx.Create(&seq).Error; cerr != nil {
			if errors.Is(cerr, gorm.ErrDuplicatedKey) {
				// lost the race to create the first sequence row;
				// surface as retryable so CreateInvoice tries again
				return "", &Error{Kind: KindDuplicateInvoiceNumber, Entity: "invoice", Err: cerr}
			}
			return "", cerr
		}
	case err != nil:
		return "", err
	}

	seq.LastSeq++
	if err := tx.Model(&models.InvoiceSequence{}).
		Where("user_id = ?", userID).
		Update("last_seq", seq.LastSeq).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", invoiceNumberPrefix, seq.LastSeq), nil
}

// lastIssuedSeq seeds a user's sequence from invoices that predate the
// counter row. Unparseable numbers count as zero.
func lastIssuedSeq(tx *gorm.DB, userID uint) int {
	var last models.Invoice
	err := tx.Select("invoice_number").
		Where("user_id = ?", userID).
		Order("id DESC").
		First(&last).Error
	if err != nil || !strings.HasPrefix(last.Number, invoiceNumberPrefix) {
		return 0
	}
	n, perr := strconv.Atoi(strings.TrimPrefix(last.Number, invoiceNumberPrefix))
	if perr != nil {
		return 0
	}
	return n
}
