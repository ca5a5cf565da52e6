// ==============================================================================
// CUSTOMER REPOSITORY IMPLEMENTATION - internal/repository/postgres/customer.go
// ==============================================================================

package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"loanserve/internal/domain"
	"loanserve/internal/kyc"
	"loanserve/pkg/errors"
)

const uniqueViolation = "23505"

const customerColumns = `
	id, user_id, aadhaar_no, pan_no, aadhaar_status, pan_status,
	kyc_status, latest_kyc_id, created_at, updated_at`

// CustomerRepository implements kyc.CustomerRepository.
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetOrCreateByUserID returns the customer profile for a user, creating the
// row on first contact. Concurrent first calls race on the user_id unique
// index; the loser re-reads the winner's row.
func (r *CustomerRepository) GetOrCreateByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	customer, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return customer, nil
	}
	if !stderrors.Is(err, errors.ErrCustomerNotFound) {
		return nil, err
	}

	now := time.Now()
	fresh := &domain.Customer{
		ID:        uuid.New(),
		UserID:    userID,
		KycStatus: domain.AggregateStatus(nil, nil),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO customers (id, user_id, kyc_status, created_at, updated_at)
		VALUES (:id, :user_id, :kyc_status, :created_at, :updated_at)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, fresh); err != nil {
		return nil, errors.Wrap(err, "failed to create customer")
	}

	return r.FindByUserID(ctx, userID)
}

// FindByUserID fetches a customer profile by owning user.
func (r *CustomerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	query := `SELECT ` + customerColumns + ` FROM customers WHERE user_id = $1`

	err := r.db.GetContext(ctx, &customer, query, userID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find customer")
	}
	return &customer, nil
}

// FindByIDForUpdateTx re-reads the customer row under a row lock so the
// status recomputation sees current state.
func (r *CustomerRepository) FindByIDForUpdateTx(ctx context.Context, tx kyc.Transaction, id uuid.UUID) (*domain.Customer, error) {
	stx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	var customer domain.Customer
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	err = stx.GetContext(ctx, &customer, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrCustomerNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock customer")
	}
	return &customer, nil
}

// UpdateKycStateTx writes the identifier, per-document status, and derived
// aggregate columns. Unique-index collisions on identifiers map to structured
// duplicate errors so the handler can answer with a field-level conflict.
func (r *CustomerRepository) UpdateKycStateTx(ctx context.Context, tx kyc.Transaction, customer *domain.Customer) error {
	stx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE customers SET
			aadhaar_no = :aadhaar_no,
			pan_no = :pan_no,
			aadhaar_status = :aadhaar_status,
			pan_status = :pan_status,
			kyc_status = :kyc_status,
			latest_kyc_id = :latest_kyc_id,
			updated_at = :updated_at
		WHERE id = :id
	`

	if _, err := stx.NamedExecContext(ctx, query, customer); err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			switch pqErr.Constraint {
			case "customers_aadhaar_no_key", "idx_customers_aadhaar_no":
				return errors.ErrDuplicateAadhaar
			case "customers_pan_no_key", "idx_customers_pan_no":
				return errors.ErrDuplicatePAN
			}
		}
		return errors.Wrap(err, "failed to update customer kyc state")
	}
	return nil
}
