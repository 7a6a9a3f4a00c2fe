// Package postgresdb provides the PostgreSQL-backed implementation of the
// persistence gateway for users and their addresses. It owns transaction
// boundaries, runs embedded schema migrations on startup, and reclassifies
// database constraint violations into the shared error taxonomy.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/thoas/go-funk"

	"github.com/vtarasenko/addrbook/internal/apperrors"
	"github.com/vtarasenko/addrbook/internal/dbx"
	"github.com/vtarasenko/addrbook/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgreSQL error codes recognized by translateConstraintError.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const userColumns = `id, name, email, created_at`

const addressColumns = `id, user_id, address_line, city, state, postal_code, country, created_at`

// PostgresDB is the PostgreSQL persistence gateway.
type PostgresDB struct {
	database     *sql.DB
	queryTimeout time.Duration
}

// New opens the database, runs the embedded goose migrations and returns the
// gateway. queryTimeout bounds every store call issued through the gateway.
func New(ctx context.Context, databaseDSN string, queryTimeout time.Duration) (*PostgresDB, error) {
	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	result := &PostgresDB{
		database:     database,
		queryTimeout: queryTimeout,
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("pgx"); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, database, "migrations"); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return result, nil
}

// newWithDB wires the gateway over an existing handle; used by tests.
func newWithDB(database *sql.DB, queryTimeout time.Duration) *PostgresDB {
	return &PostgresDB{database: database, queryTimeout: queryTimeout}
}

func (db *PostgresDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.queryTimeout)
}

// translateConstraintError reclassifies recognizable integrity violations.
// Everything else is returned as-is and collapses to a transient store error
// upstream.
func translateConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.ErrEmailExists
		case pgForeignKeyViolation:
			return apperrors.ErrInvalidReference
		}
	}
	return err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var usr models.User
	err := row.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &usr, nil
}

func insertUser(ctx context.Context, database dbx.DBTX, usr *models.User) (*models.User, error) {
	row := database.QueryRowContext(
		ctx,
		`INSERT INTO users (name, email, password)
			VALUES ($1, $2, $3)
			RETURNING id, created_at`,
		usr.Name,
		usr.Email,
		usr.Password,
	)

	created := *usr
	if err := row.Scan(&created.ID, &created.CreatedAt); err != nil {
		return nil, translateConstraintError(err)
	}

	return &created, nil
}

// InsertUser persists a user row with an already-hashed password and returns
// the stored row including the generated id and creation timestamp.
func (db *PostgresDB) InsertUser(ctx context.Context, usr *models.User) (*models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return insertUser(ctx, db.database, usr)
}

// InsertUserWithAddresses atomically persists a user together with its
// addresses. Either every row is committed or none are; the returned shape is
// re-read inside the same transaction before commit.
func (db *PostgresDB) InsertUserWithAddresses(
	ctx context.Context,
	usr *models.User,
	addresses []models.Address,
) (*models.UserWithAddresses, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var result *models.UserWithAddresses

	err := dbx.WithTx(ctx, db.database, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := insertUser(ctx, tx, usr)
		if err != nil {
			return err
		}

		if err := insertAddresses(ctx, tx, created.ID, addresses); err != nil {
			return translateConstraintError(err)
		}

		createdAddresses, err := findAddressesByUserID(ctx, tx, created.ID)
		if err != nil {
			return err
		}

		result = &models.UserWithAddresses{
			User:      *created,
			Addresses: createdAddresses,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func insertAddresses(ctx context.Context, database dbx.DBTX, userID int64, addresses []models.Address) error {
	if len(addresses) == 0 {
		return nil
	}

	const columnsPerRow = 6

	values := make([][]any, 0, len(addresses))
	placeholders := make([]string, 0, len(addresses))
	for i, address := range addresses {
		base := i * columnsPerRow
		placeholders = append(placeholders, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		values = append(values, []any{
			userID,
			address.AddressLine,
			address.City,
			address.State,
			address.PostalCode,
			address.Country,
		})
	}

	_, err := database.ExecContext(
		ctx,
		fmt.Sprintf(
			`INSERT INTO addresses (user_id, address_line, city, state, postal_code, country)
				VALUES %s`,
			strings.Join(placeholders, ","),
		),
		funk.Flatten(values).([]any)...,
	)

	return err
}

// FindUsers returns all users ordered by id ascending.
func (db *PostgresDB) FindUsers(ctx context.Context) ([]models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}

	return collectUsers(rows)
}

// FindUserByID returns the user or apperrors.ErrUserNotFound.
func (db *PostgresDB) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	usr, err := scanUser(db.database.QueryRowContext(
		ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return usr, nil
}

// IsUserExists reports whether a user row with the given id exists.
func (db *PostgresDB) IsUserExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM users WHERE id = $1`,
		id,
	)

	var amount int
	if err := row.Scan(&amount); err != nil {
		return false, err
	}

	return amount > 0, nil
}

// UpdateUser replaces the mutable user fields and returns the updated row,
// or apperrors.ErrUserNotFound when no row matched.
func (db *PostgresDB) UpdateUser(ctx context.Context, id int64, name, email string) (*models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	usr, err := scanUser(db.database.QueryRowContext(
		ctx,
		`UPDATE users
			SET name = $1, email = $2
			WHERE id = $3
			RETURNING `+userColumns,
		name,
		email,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, translateConstraintError(err)
	}

	return usr, nil
}

// DeleteUser removes the user row; owned addresses are removed by the
// ON DELETE CASCADE constraint.
func (db *PostgresDB) DeleteUser(ctx context.Context, id int64) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM users WHERE id = $1 RETURNING id`,
		id,
	)

	var deletedID int64
	err := row.Scan(&deletedID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrUserNotFound
	}

	return err
}

// FindUsersWithoutAddresses returns users owning zero addresses, ordered by name.
func (db *PostgresDB) FindUsersWithoutAddresses(ctx context.Context) ([]models.User, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT users.id, users.name, users.email, users.created_at
			FROM users
				LEFT JOIN addresses ON addresses.user_id = users.id
			WHERE addresses.id IS NULL
			ORDER BY users.name`,
	)
	if err != nil {
		return nil, err
	}

	return collectUsers(rows)
}

// FindAddressCounts returns the number of addresses per user, including users
// with zero addresses, ordered by name.
func (db *PostgresDB) FindAddressCounts(ctx context.Context) ([]models.UserAddressCount, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.database.QueryContext(
		ctx,
		`SELECT users.id, users.name, COUNT(addresses.id)
			FROM users
				LEFT JOIN addresses ON addresses.user_id = users.id
			GROUP BY users.id, users.name
			ORDER BY users.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.UserAddressCount{}
	for rows.Next() {
		var row models.UserAddressCount
		if err := rows.Scan(&row.ID, &row.Name, &row.AddressCount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// InsertAddress persists an address bound to its owning user and returns the
// stored row.
func (db *PostgresDB) InsertAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO addresses (user_id, address_line, city, state, postal_code, country)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+addressColumns,
		address.UserID,
		address.AddressLine,
		address.City,
		address.State,
		address.PostalCode,
		address.Country,
	)

	created, err := scanAddress(row)
	if err != nil {
		return nil, translateConstraintError(err)
	}

	return created, nil
}

// FindAddressesByUserID returns the user's addresses ordered by id ascending.
func (db *PostgresDB) FindAddressesByUserID(ctx context.Context, userID int64) ([]models.Address, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return findAddressesByUserID(ctx, db.database, userID)
}

func findAddressesByUserID(ctx context.Context, database dbx.DBTX, userID int64) ([]models.Address, error) {
	rows, err := database.QueryContext(
		ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Address{}
	for rows.Next() {
		var address models.Address
		err := rows.Scan(
			&address.ID,
			&address.UserID,
			&address.AddressLine,
			&address.City,
			&address.State,
			&address.PostalCode,
			&address.Country,
			&address.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, address)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateAddress applies the present patch fields to the address identified by
// (userID, addressID) and returns the updated row. Absent fields keep their
// stored values. Returns apperrors.ErrAddressNotFound when no row matched the
// identity predicate.
func (db *PostgresDB) UpdateAddress(
	ctx context.Context,
	userID,
	addressID int64,
	patch *models.UpdateAddressRequest,
) (*models.Address, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`UPDATE addresses
			SET address_line = COALESCE($1, address_line),
				city = COALESCE($2, city),
				state = COALESCE($3, state),
				postal_code = COALESCE($4, postal_code),
				country = COALESCE($5, country)
			WHERE id = $6 AND user_id = $7
			RETURNING `+addressColumns,
		patch.AddressLine,
		patch.City,
		patch.State,
		patch.PostalCode,
		patch.Country,
		addressID,
		userID,
	)

	updated, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteAddress removes the address identified by (userID, addressID) and
// returns the deleted row, or apperrors.ErrAddressNotFound when no row matched.
func (db *PostgresDB) DeleteAddress(ctx context.Context, userID, addressID int64) (*models.Address, error) {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	row := db.database.QueryRowContext(
		ctx,
		`DELETE FROM addresses
			WHERE id = $1 AND user_id = $2
			RETURNING `+addressColumns,
		addressID,
		userID,
	)

	deleted, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func scanAddress(row *sql.Row) (*models.Address, error) {
	var address models.Address
	err := row.Scan(
		&address.ID,
		&address.UserID,
		&address.AddressLine,
		&address.City,
		&address.State,
		&address.PostalCode,
		&address.Country,
		&address.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	defer rows.Close()

	result := []models.User{}
	for rows.Next() {
		var usr models.User
		if err := rows.Scan(&usr.ID, &usr.Name, &usr.Email, &usr.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, usr)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Ping checks the connection to the database.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.database.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}
