package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/model"
	"github.com/riskinn/riskinn-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// baseUserColumns are the columns every user lookup returns. Secret columns
// (password_hash, otp_*, reset_token_*) are appended only by the lookups
// that need them — the SQL equivalent of the original schema's select:false.
const baseUserColumns = `id, name, email, avatar_url, role, provider, google_id,
	is_verified, password_changed_at, last_login, profile, send_offers,
	created_at, updated_at`

// Create inserts a new account. The repository assigns the ID (xid: 20
// chars, URL-safe, time-sortable) and both timestamps.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = model.NormalizeEmail(user.Email)
	if user.Role == "" {
		user.Role = model.RoleStudent
	}
	if user.Provider == "" {
		user.Provider = model.ProviderLocal
	}

	profile, err := marshalJSON(user.Profile)
	if err != nil {
		return err
	}

	otpCode, otpExpires := secretColumns(user.OTP)
	resetHash, resetExpires := secretColumns(user.ResetToken)

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, avatar_url, role,
			provider, google_id, is_verified, otp_code, otp_expires_at,
			reset_token_hash, reset_token_expires_at, password_changed_at,
			last_login, profile, send_offers, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.AvatarURL,
		string(user.Role),
		string(user.Provider),
		nullString(user.GoogleID),
		user.IsVerified,
		otpCode,
		otpExpires,
		resetHash,
		resetExpires,
		nullTime(user.PasswordChangedAt),
		nullTime(user.LastLogin),
		profile,
		user.SendOffers,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// Update rewrites an account, secrets included. A nil PendingSecret clears
// its column pair, which is how flows drop a consumed or undeliverable OTP
// or reset token.
//
// password_hash is the one column that survives an empty in-memory value:
// most lookups deliberately omit it, so an empty hash means "not loaded",
// never "erase the password". No flow clears a password once set.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	profile, err := marshalJSON(user.Profile)
	if err != nil {
		return err
	}

	otpCode, otpExpires := secretColumns(user.OTP)
	resetHash, resetExpires := secretColumns(user.ResetToken)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, email = ?,
		     password_hash = COALESCE(NULLIF(?, ''), password_hash),
		     avatar_url = ?, role = ?,
		     provider = ?, google_id = ?, is_verified = ?,
		     otp_code = ?, otp_expires_at = ?,
		     reset_token_hash = ?, reset_token_expires_at = ?,
		     password_changed_at = ?, last_login = ?, profile = ?,
		     send_offers = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		model.NormalizeEmail(user.Email),
		user.PasswordHash,
		user.AvatarURL,
		string(user.Role),
		string(user.Provider),
		nullString(user.GoogleID),
		user.IsVerified,
		otpCode,
		otpExpires,
		resetHash,
		resetExpires,
		nullTime(user.PasswordChangedAt),
		nullTime(user.LastLogin),
		profile,
		user.SendOffers,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}

	return nil
}

// FindByID retrieves an account by internal ID, without secrets.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+baseUserColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// FindVerifiedByEmail returns the verified account for an email. At most one
// can exist — the partial unique index guarantees it.
func (db *DB) FindVerifiedByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findByEmail(ctx, email, true)
}

// FindUnverifiedByEmail returns the newest unverified shadow record for an
// email.
func (db *DB) FindUnverifiedByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findByEmail(ctx, email, false)
}

func (db *DB) findByEmail(ctx context.Context, email string, verified bool) (*model.User, error) {
	email = model.NormalizeEmail(email)
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+baseUserColumns+`
		 FROM users WHERE email = ? AND is_verified = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		email, verified)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}
	return user, nil
}

// FindVerifiedByEmailWithPassword is the login lookup: the verified account
// including its password hash.
func (db *DB) FindVerifiedByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+baseUserColumns+`, password_hash
		 FROM users WHERE email = ? AND is_verified = 1
		 LIMIT 1`,
		email)

	var hash string
	user, err := scanUserExtra(row, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting verified user %s: %w", email, err)
	}
	user.PasswordHash = hash
	return user, nil
}

// FindUnverifiedByEmailWithOTP is the verification lookup: the unverified
// shadow record including the pending OTP pair (nil when no OTP is pending).
func (db *DB) FindUnverifiedByEmailWithOTP(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+baseUserColumns+`, otp_code, otp_expires_at
		 FROM users WHERE email = ? AND is_verified = 0
		 ORDER BY updated_at DESC LIMIT 1`,
		email)

	var code sql.NullString
	var expires sql.NullTime
	user, err := scanUserExtra(row, &code, &expires)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting unverified user %s: %w", email, err)
	}
	user.OTP = pendingSecret(code, expires)
	return user, nil
}

// FindByResetTokenHash returns the account whose stored reset-token digest
// matches, with the reset pair populated. Expiry is the caller's problem —
// an expired token must fail the same way as a wrong one, and that decision
// belongs to the service.
func (db *DB) FindByResetTokenHash(ctx context.Context, digest string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+baseUserColumns+`, reset_token_hash, reset_token_expires_at
		 FROM users WHERE reset_token_hash = ?
		 LIMIT 1`,
		digest)

	var hash sql.NullString
	var expires sql.NullTime
	user, err := scanUserExtra(row, &hash, &expires)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", "reset token")
		}
		return nil, fmt.Errorf("sqlite: getting user by reset token: %w", err)
	}
	user.ResetToken = pendingSecret(hash, expires)
	return user, nil
}

// scanUser reads the base column set into a User.
func scanUser(row *sql.Row) (*model.User, error) {
	return scanUserExtra(row)
}

// scanUserExtra reads the base column set plus any extra scan targets the
// caller appends (secret columns).
func scanUserExtra(row *sql.Row, extra ...any) (*model.User, error) {
	var u model.User
	var googleID sql.NullString
	var passwordChangedAt, lastLogin sql.NullTime
	var role, provider, profile string

	targets := []any{
		&u.ID, &u.Name, &u.Email, &u.AvatarURL, &role, &provider, &googleID,
		&u.IsVerified, &passwordChangedAt, &lastLogin, &profile,
		&u.SendOffers, &u.CreatedAt, &u.UpdatedAt,
	}
	targets = append(targets, extra...)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	u.Role = model.Role(role)
	u.Provider = model.Provider(provider)
	u.GoogleID = googleID.String
	if passwordChangedAt.Valid {
		u.PasswordChangedAt = passwordChangedAt.Time
	}
	if lastLogin.Valid {
		u.LastLogin = lastLogin.Time
	}
	if err := unmarshalJSON(profile, &u.Profile); err != nil {
		return nil, err
	}

	return &u, nil
}

// secretColumns flattens a PendingSecret into its nullable column pair.
func secretColumns(s *model.PendingSecret) (sql.NullString, sql.NullTime) {
	if s == nil {
		return sql.NullString{}, sql.NullTime{}
	}
	return sql.NullString{String: s.Value, Valid: true},
		sql.NullTime{Time: s.ExpiresAt, Valid: true}
}

// pendingSecret rebuilds a PendingSecret from its column pair. Both columns
// NULL means no secret pending; anything else means the pair is present.
func pendingSecret(value sql.NullString, expires sql.NullTime) *model.PendingSecret {
	if !value.Valid || !expires.Valid {
		return nil
	}
	return &model.PendingSecret{Value: value.String, ExpiresAt: expires.Time}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
