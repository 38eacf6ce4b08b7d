package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/artgallerycloud/server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id int64, username, fullName, passwordHash *string) error
	SetUserPhoto(ctx context.Context, id int64, photoKey string) error
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error)

	// Artwork operations
	CreateArtwork(ctx context.Context, artwork *models.Artwork) error
	GetArtwork(ctx context.Context, id int64) (*models.Artwork, error)
	ListMarketplace(ctx context.Context, limit, offset int) ([]models.ArtworkListing, error)
	ListArtworksByCreator(ctx context.Context, ownerID int64, limit, offset int) ([]models.ArtworkListing, error)
	ListArtworksByOwner(ctx context.Context, ownerID int64) ([]models.ArtworkListing, error)

	// Purchase operation (the only cross-row transaction in the system)
	PurchaseArtwork(ctx context.Context, buyerID, artworkID int64) (*models.PurchaseReceipt, error)

	// Notification operations
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID int64) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
	maxRetries  int
}

// NewPostgresRepository creates a new PostgreSQL repository. lockTimeout
// bounds row-lock waits inside the purchase transaction; maxRetries bounds
// purchase restarts after serialization failures.
func NewPostgresRepository(db *sqlx.DB, lockTimeout time.Duration, maxRetries int) *PostgresRepository {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PostgresRepository{
		db:          db,
		lockTimeout: lockTimeout,
		maxRetries:  maxRetries,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, full_name, password_hash, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.FullName, user.PasswordHash, user.Balance,
		user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}

	return err
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// UpdateUserProfile applies the non-nil fields to the user row.
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, id int64, username, fullName, passwordHash *string) error {
	query := `
		UPDATE users SET
			username = COALESCE($1, username),
			full_name = COALESCE($2, full_name),
			password_hash = COALESCE($3, password_hash),
			updated_at = $4
		WHERE id = $5
	`

	res, err := r.db.ExecContext(ctx, query, username, fullName, passwordHash, time.Now().UTC(), id)
	if isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepository) SetUserPhoto(ctx context.Context, id int64, photoKey string) error {
	query := `UPDATE users SET photo_key = $1, updated_at = $2 WHERE id = $3`

	res, err := r.db.ExecContext(ctx, query, photoKey, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// AddBalance credits a top-up to a user and returns the new balance. A single
// row update: it serializes against in-flight purchases through the same row
// lock the purchase transaction takes.
func (r *PostgresRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE users SET balance = balance + $1, updated_at = $2
		WHERE id = $3
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, amount, time.Now().UTC(), id).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}

	return balance, nil
}

// Artwork repository methods
func (r *PostgresRepository) CreateArtwork(ctx context.Context, artwork *models.Artwork) error {
	query := `
		INSERT INTO artworks (name, original_owner_id, current_owner_id, acquisition_type,
			image_key, price, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	now := time.Now().UTC()
	artwork.CreatedAt = now
	artwork.UpdatedAt = now
	artwork.AcquisitionType = models.AcquisitionUploaded
	artwork.CurrentOwnerID = artwork.OriginalOwnerID
	artwork.IsAvailable = true

	err := r.db.QueryRowContext(ctx, query,
		artwork.Name, artwork.OriginalOwnerID, artwork.CurrentOwnerID, artwork.AcquisitionType,
		artwork.ImageKey, artwork.Price, artwork.IsAvailable,
		artwork.CreatedAt, artwork.UpdatedAt).Scan(&artwork.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateImage
	}

	return err
}

func (r *PostgresRepository) GetArtwork(ctx context.Context, id int64) (*models.Artwork, error) {
	query := `SELECT * FROM artworks WHERE id = $1`

	var artwork models.Artwork
	err := r.db.GetContext(ctx, &artwork, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtworkNotFound
		}
		return nil, err
	}

	return &artwork, nil
}

const artworkListingColumns = `
	a.id, a.name, a.original_owner_id, a.current_owner_id, a.acquisition_type,
	a.image_key, a.price, a.is_available, a.created_at, a.updated_at,
	ou.full_name AS original_owner_name, cu.full_name AS current_owner_name
`

// ListMarketplace returns available artworks, newest first.
func (r *PostgresRepository) ListMarketplace(ctx context.Context, limit, offset int) ([]models.ArtworkListing, error) {
	query := `
		SELECT ` + artworkListingColumns + `
		FROM artworks a
		JOIN users ou ON ou.id = a.original_owner_id
		JOIN users cu ON cu.id = a.current_owner_id
		WHERE a.is_available
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $1 OFFSET $2
	`

	listings := []models.ArtworkListing{}
	err := r.db.SelectContext(ctx, &listings, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// ListArtworksByCreator returns pieces originally created by a user,
// regardless of availability or current ownership.
func (r *PostgresRepository) ListArtworksByCreator(ctx context.Context, ownerID int64, limit, offset int) ([]models.ArtworkListing, error) {
	query := `
		SELECT ` + artworkListingColumns + `
		FROM artworks a
		JOIN users ou ON ou.id = a.original_owner_id
		JOIN users cu ON cu.id = a.current_owner_id
		WHERE a.original_owner_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2 OFFSET $3
	`

	listings := []models.ArtworkListing{}
	err := r.db.SelectContext(ctx, &listings, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// ListArtworksByOwner returns a user's current inventory.
func (r *PostgresRepository) ListArtworksByOwner(ctx context.Context, ownerID int64) ([]models.ArtworkListing, error) {
	query := `
		SELECT ` + artworkListingColumns + `
		FROM artworks a
		JOIN users ou ON ou.id = a.original_owner_id
		JOIN users cu ON cu.id = a.current_owner_id
		WHERE a.current_owner_id = $1
		ORDER BY a.created_at DESC, a.id DESC
	`

	listings := []models.ArtworkListing{}
	err := r.db.SelectContext(ctx, &listings, query, ownerID)
	if err != nil {
		return nil, err
	}

	return listings, nil
}

// PurchaseArtwork atomically transfers ownership of an artwork and the price
// between the buyer's and seller's balances.
//
// Locking protocol: the artwork row is locked first (availability is the
// cheapest precondition to fail fast on and its lock serializes all buyers of
// the same piece); then the two user rows are locked in ascending-id order,
// so two purchases with swapped buyer/seller pairs never circular-wait.
// All preconditions are re-checked under the locks: values read before lock
// acquisition are not trustworthy.
//
// Serialization failures and deadlocks restart the transaction up to the
// retry budget; lock-wait timeouts and exhausted retries surface as
// ErrConcurrencyConflict.
func (r *PostgresRepository) PurchaseArtwork(ctx context.Context, buyerID, artworkID int64) (*models.PurchaseReceipt, error) {
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		receipt, err := r.purchaseOnce(ctx, buyerID, artworkID)
		if err == nil {
			return receipt, nil
		}
		if isSerializationFailure(err) {
			continue
		}
		if isLockTimeout(err) {
			return nil, ErrConcurrencyConflict
		}
		return nil, err
	}

	return nil, ErrConcurrencyConflict
}

// lockedUser is the subset of a user row read under FOR UPDATE.
type lockedUser struct {
	ID      int64           `db:"id"`
	Balance decimal.Decimal `db:"balance"`
}

// lockedArtwork is the subset of an artwork row read under FOR UPDATE.
type lockedArtwork struct {
	ID             int64           `db:"id"`
	Name           string          `db:"name"`
	CurrentOwnerID int64           `db:"current_owner_id"`
	Price          decimal.Decimal `db:"price"`
	IsAvailable    bool            `db:"is_available"`
}

func (r *PostgresRepository) purchaseOnce(ctx context.Context, buyerID, artworkID int64) (_ *models.PurchaseReceipt, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Bound lock waits so a stuck concurrent transaction cannot starve this
	// request. SET does not take bind parameters.
	_, err = tx.ExecContext(ctx, formatLockTimeout(r.lockTimeout))
	if err != nil {
		return nil, err
	}

	// Lock the artwork row and re-check availability and ownership under the
	// lock.
	var artwork lockedArtwork
	err = tx.GetContext(ctx, &artwork,
		`SELECT id, name, current_owner_id, price, is_available FROM artworks WHERE id = $1 FOR UPDATE`,
		artworkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrArtworkNotFound
		}
		return nil, err
	}

	if !artwork.IsAvailable {
		err = ErrArtworkUnavailable
		return nil, err
	}

	sellerID := artwork.CurrentOwnerID
	if sellerID == buyerID {
		err = ErrSelfPurchase
		return nil, err
	}

	// Lock the buyer and seller rows in ascending-id order. Fixed global
	// order: two concurrent purchases that need the same pair of users always
	// request the locks in the same sequence.
	firstID, secondID := buyerID, sellerID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	users := make(map[int64]lockedUser, 2)
	for _, id := range []int64{firstID, secondID} {
		var u lockedUser
		err = tx.GetContext(ctx, &u,
			`SELECT id, balance FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if id == buyerID {
					err = ErrBuyerNotFound
				} else {
					err = ErrSellerNotFound
				}
			}
			return nil, err
		}
		users[id] = u
	}

	// Re-check the balance under the lock.
	if users[buyerID].Balance.LessThan(artwork.Price) {
		err = ErrInsufficientFunds
		return nil, err
	}

	now := time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET balance = balance - $1, updated_at = $2 WHERE id = $3`,
		artwork.Price, now, buyerID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
		artwork.Price, now, sellerID)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE artworks SET current_owner_id = $1, acquisition_type = $2, is_available = FALSE, updated_at = $3 WHERE id = $4`,
		buyerID, models.AcquisitionPurchased, now, artworkID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &models.PurchaseReceipt{
		ArtworkID:   artworkID,
		ArtworkName: artwork.Name,
		BuyerID:     buyerID,
		SellerID:    sellerID,
		Price:       artwork.Price,
	}, nil
}

// Notification repository methods
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	return r.db.QueryRowContext(ctx, query,
		n.UserID, n.Type, n.Title, n.Body, n.CreatedAt).Scan(&n.ID)
}

func (r *PostgresRepository) GetUserNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	query := `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	notifications := []models.Notification{}
	err := r.db.SelectContext(ctx, &notifications, query, userID)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkNotificationRead sets the read flag. The user id guards against marking
// another user's notification.
func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// Postgres error classification

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isSerializationFailure covers serialization_failure (40001) and
// deadlock_detected (40P01); both are safe to retry from the top.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && (pqErr.Code == "40001" || pqErr.Code == "40P01")
}

// isLockTimeout matches lock_not_available (55P03), raised when lock_timeout
// expires while waiting on a row lock.
func isLockTimeout(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "55P03"
}

func formatLockTimeout(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)
}
