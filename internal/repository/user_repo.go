package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"poppang-auth/internal/domain"
)

const pgUniqueViolation = "23505"

var (
	// ErrDuplicateUID indica que otro escritor creo primero el usuario con ese uid.
	ErrDuplicateUID = errors.New("user uid already exists")
	// ErrNicknameExists indica que el apodo ya pertenece a otro usuario.
	ErrNicknameExists = errors.New("nickname already exists")
)

// UserRepository define el contrato de persistencia para usuarios.
// Las busquedas devuelven pgx.ErrNoRows cuando no hay fila.
type UserRepository interface {
	FindByUID(ctx context.Context, uid string) (domain.User, error)
	FindActiveByUID(ctx context.Context, uid string) (domain.User, error)
	FindByID(ctx context.Context, id int64) (domain.User, error)
	ExistsByNickname(ctx context.Context, nickname string) (bool, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	CompleteSignup(ctx context.Context, uid string, profile domain.SignupProfile) (domain.User, error)
}

// PgUserRepository implementa UserRepository sobre el pool o una transaccion.
type PgUserRepository struct {
	db DBTX
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: pool}
}

const userColumns = `id, uid, provider, email, nickname, role, is_alerted, fcm_token, is_deleted, created_at, updated_at`

func (r *PgUserRepository) FindByUID(ctx context.Context, uid string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	return scanUser(r.db.QueryRow(ctx, query, uid))
}

func (r *PgUserRepository) FindActiveByUID(ctx context.Context, uid string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1 AND is_deleted = false`
	return scanUser(r.db.QueryRow(ctx, query, uid))
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PgUserRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1)`
	var exists bool
	err := r.db.QueryRow(ctx, query, nickname).Scan(&exists)
	return exists, err
}

// Create inserta el usuario. Si el uid ya existe devuelve ErrDuplicateUID sin
// modificar la fila existente.
func (r *PgUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	query := `
		INSERT INTO users (uid, provider, email, role, is_alerted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, false, $5, $5)
		ON CONFLICT (uid) DO NOTHING
		RETURNING ` + userColumns
	now := time.Now().UTC()
	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.UID,
		string(user.Provider),
		user.Email,
		string(user.Role),
		now,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrDuplicateUID
	}
	if isUniqueViolation(err) {
		return domain.User{}, ErrDuplicateUID
	}
	return created, err
}

// CompleteSignup actualiza el perfil dentro de una transaccion (un savepoint si
// ya corre en una). El lock consultivo sobre el apodo serializa registros
// concurrentes con el mismo apodo hasta el commit.
func (r *PgUserRepository) CompleteSignup(ctx context.Context, uid string, profile domain.SignupProfile) (domain.User, error) {
	var updated domain.User
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, profile.Nickname); err != nil {
			return err
		}

		var taken bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE nickname = $1 AND uid <> $2)`,
			profile.Nickname, uid,
		).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return ErrNicknameExists
		}

		query := `
			UPDATE users
			SET nickname = $2, email = $3, is_alerted = $4, fcm_token = $5, updated_at = $6
			WHERE uid = $1
			RETURNING ` + userColumns
		updated, err = scanUser(tx.QueryRow(ctx, query,
			uid,
			profile.Nickname,
			profile.Email,
			profile.Alerted,
			profile.FCMToken,
			time.Now().UTC(),
		))
		return err
	})
	if isUniqueViolation(err) {
		return domain.User{}, ErrNicknameExists
	}
	if err != nil {
		return domain.User{}, err
	}
	return updated, nil
}

// rowScanner permite escanear tanto pgx.Row como filas de pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u        domain.User
		provider string
		role     string
	)
	err := row.Scan(
		&u.ID,
		&u.UID,
		&provider,
		&u.Email,
		&u.Nickname,
		&role,
		&u.Alerted,
		&u.FCMToken,
		&u.Deleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	u.Provider = domain.Provider(provider)
	u.Role = domain.Role(role)
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
