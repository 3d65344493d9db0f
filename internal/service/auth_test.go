package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/riskinn/riskinn-api/internal/apperror"
	"github.com/riskinn/riskinn-api/internal/auth"
	"github.com/riskinn/riskinn-api/internal/email"
	"github.com/riskinn/riskinn-api/internal/model"
)

// fakeUserRepo is an in-memory repository.UserRepository that mirrors the
// SQLite implementation's visibility rules: default lookups strip the
// password hash and pending secrets, the explicit lookups return them, and
// an update with an empty hash preserves the stored one.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by ID, stored with all secrets
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.nextID++
	user.ID = "user-" + string(rune('a'+f.nextID-1))
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
	f.users[user.ID] = cloneUser(user)
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	stored, ok := f.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	updated := cloneUser(user)
	if updated.PasswordHash == "" {
		updated.PasswordHash = stored.PasswordHash
	}
	updated.UpdatedAt = time.Now()
	f.users[user.ID] = updated
	user.UpdatedAt = updated.UpdatedAt
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	stored, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return stripSecrets(stored), nil
}

func (f *fakeUserRepo) FindVerifiedByEmail(_ context.Context, emailAddr string) (*model.User, error) {
	if u := f.byEmail(emailAddr, true); u != nil {
		return stripSecrets(u), nil
	}
	return nil, apperror.NotFound("user", emailAddr)
}

func (f *fakeUserRepo) FindUnverifiedByEmail(_ context.Context, emailAddr string) (*model.User, error) {
	if u := f.byEmail(emailAddr, false); u != nil {
		return stripSecrets(u), nil
	}
	return nil, apperror.NotFound("user", emailAddr)
}

func (f *fakeUserRepo) FindVerifiedByEmailWithPassword(_ context.Context, emailAddr string) (*model.User, error) {
	if u := f.byEmail(emailAddr, true); u != nil {
		out := stripSecrets(u)
		out.PasswordHash = u.PasswordHash
		return out, nil
	}
	return nil, apperror.NotFound("user", emailAddr)
}

func (f *fakeUserRepo) FindUnverifiedByEmailWithOTP(_ context.Context, emailAddr string) (*model.User, error) {
	if u := f.byEmail(emailAddr, false); u != nil {
		out := stripSecrets(u)
		out.OTP = cloneSecret(u.OTP)
		return out, nil
	}
	return nil, apperror.NotFound("user", emailAddr)
}

func (f *fakeUserRepo) FindByResetTokenHash(_ context.Context, digest string) (*model.User, error) {
	for _, u := range f.users {
		if u.ResetToken != nil && u.ResetToken.Value == digest {
			out := stripSecrets(u)
			out.ResetToken = cloneSecret(u.ResetToken)
			return out, nil
		}
	}
	return nil, apperror.NotFound("user", "reset token")
}

func (f *fakeUserRepo) byEmail(emailAddr string, verified bool) *model.User {
	emailAddr = model.NormalizeEmail(emailAddr)
	var newest *model.User
	for _, u := range f.users {
		if u.Email == emailAddr && u.IsVerified == verified {
			if newest == nil || u.UpdatedAt.After(newest.UpdatedAt) {
				newest = u
			}
		}
	}
	return newest
}

// stored returns the raw record, secrets included, for assertions.
func (f *fakeUserRepo) stored(t *testing.T, id string) *model.User {
	t.Helper()
	u, ok := f.users[id]
	if !ok {
		t.Fatalf("no stored user with id %s", id)
	}
	return u
}

func (f *fakeUserRepo) storedByEmail(t *testing.T, emailAddr string, verified bool) *model.User {
	t.Helper()
	u := f.byEmail(emailAddr, verified)
	if u == nil {
		t.Fatalf("no stored user with email %s (verified=%v)", emailAddr, verified)
	}
	return u
}

func cloneUser(u *model.User) *model.User {
	c := *u
	c.OTP = cloneSecret(u.OTP)
	c.ResetToken = cloneSecret(u.ResetToken)
	return &c
}

func cloneSecret(s *model.PendingSecret) *model.PendingSecret {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func stripSecrets(u *model.User) *model.User {
	c := cloneUser(u)
	c.PasswordHash = ""
	c.OTP = nil
	c.ResetToken = nil
	return c
}

// fakeNotifier records messages and can be told to fail.
type fakeNotifier struct {
	sent    []email.Message
	failErr error
}

func (f *fakeNotifier) Send(_ context.Context, msg email.Message) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeNotifier) last(t *testing.T) email.Message {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no email was sent")
	}
	return f.sent[len(f.sent)-1]
}

// fakeGoogle returns a canned profile or a canned error.
type fakeGoogle struct {
	user *auth.GoogleUser
	err  error
}

func (f *fakeGoogle) AuthURL() string { return "https://accounts.google.com/o/oauth2/auth?fake=1" }

func (f *fakeGoogle) Exchange(_ context.Context, _ string) (*auth.GoogleUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type authFixture struct {
	svc      *AuthService
	repo     *fakeUserRepo
	notifier *fakeNotifier
	tokens   *auth.TokenService
	google   *fakeGoogle
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := newFakeUserRepo()
	notifier := &fakeNotifier{}
	google := &fakeGoogle{}
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	svc := NewAuthService(repo, tokens, auth.NewPasswordServiceForTest(4), notifier, google,
		AuthOptions{
			OTPLength:         6,
			OTPExpiry:         10 * time.Minute,
			PasswordMinLength: 6,
			ResetTokenExpiry:  10 * time.Minute,
			FrontendURL:       "http://localhost:3000",
		}, logger)

	return &authFixture{svc: svc, repo: repo, notifier: notifier, tokens: tokens, google: google}
}

// register is a shortcut for test setup steps that need an existing account.
func (fx *authFixture) register(t *testing.T, name, emailAddr, password string) {
	t.Helper()
	if _, err := fx.svc.Register(context.Background(), name, emailAddr, password); err != nil {
		t.Fatalf("Register(%s): %v", emailAddr, err)
	}
}

// verify completes registration using the OTP stored for the account.
func (fx *authFixture) verify(t *testing.T, emailAddr string) *AuthResult {
	t.Helper()
	otp := fx.repo.storedByEmail(t, emailAddr, false).OTP
	if otp == nil {
		t.Fatalf("no pending OTP for %s", emailAddr)
	}
	res, err := fx.svc.VerifyOTP(context.Background(), emailAddr, otp.Value)
	if err != nil {
		t.Fatalf("VerifyOTP(%s): %v", emailAddr, err)
	}
	return res
}

// requestReset triggers ForgotPassword and returns the plaintext token from
// the captured email.
func (fx *authFixture) requestReset(t *testing.T, emailAddr string) string {
	t.Helper()
	if err := fx.svc.ForgotPassword(context.Background(), emailAddr); err != nil {
		t.Fatalf("ForgotPassword(%s): %v", emailAddr, err)
	}
	return extractResetToken(t, fx.notifier.last(t).Text)
}

// extractResetToken pulls the 64-hex token out of the reset-link email body.
func extractResetToken(t *testing.T, body string) string {
	t.Helper()
	const marker = "/reset-password/"
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("no reset link in email body: %q", body)
	}
	rest := body[idx+len(marker):]
	end := strings.IndexAny(rest, " \n\r\t")
	if end < 0 {
		end = len(rest)
	}
	token := rest[:end]
	if len(token) != 64 {
		t.Fatalf("reset token %q has length %d, want 64", token, len(token))
	}
	return token
}

func TestRegister_HappyPath(t *testing.T) {
	fx := newAuthFixture(t)

	msg, err := fx.svc.Register(context.Background(), "Ada", "ada@example.com", "secret99")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !strings.Contains(msg, "ada@example.com") {
		t.Errorf("confirmation %q should mention the email", msg)
	}

	stored := fx.repo.storedByEmail(t, "ada@example.com", false)
	if stored.IsVerified {
		t.Error("new account must start unverified")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "secret99" {
		t.Errorf("password must be stored hashed, got %q", stored.PasswordHash)
	}
	if stored.OTP == nil {
		t.Fatal("a pending OTP must be stored")
	}
	if len(stored.OTP.Value) != 6 {
		t.Errorf("OTP length = %d, want 6", len(stored.OTP.Value))
	}
	if !stored.OTP.ExpiresAt.After(time.Now()) {
		t.Error("OTP expiry must be in the future")
	}

	sent := fx.notifier.last(t)
	if sent.To != "ada@example.com" {
		t.Errorf("OTP email went to %q", sent.To)
	}
	if !strings.Contains(sent.Text, stored.OTP.Value) {
		t.Error("OTP email body must contain the code")
	}
}

func TestRegister_NormalizesEmail(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "  ADA@Example.COM ", "secret99")
	fx.repo.storedByEmail(t, "ada@example.com", false)
}

func TestRegister_Validation(t *testing.T) {
	fx := newAuthFixture(t)
	cases := []struct {
		name      string
		userName  string
		email     string
		password  string
		wantField string
	}{
		{"empty name", "", "a@b.com", "secret99", "name"},
		{"bad email", "Ada", "not-an-email", "secret99", "email"},
		{"short password", "Ada", "a@b.com", "12345", "password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Register(context.Background(), tc.userName, tc.email, tc.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			var appErr *apperror.AppError
			errors.As(err, &appErr)
			if appErr.Field != tc.wantField {
				t.Errorf("field = %q, want %q", appErr.Field, tc.wantField)
			}
		})
	}
}

func TestRegister_VerifiedEmailConflicts(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")

	_, err := fx.svc.Register(context.Background(), "Imposter", "ada@example.com", "other-pass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRegister_OverwritesShadowRecord(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "first-pass")
	first := fx.repo.storedByEmail(t, "ada@example.com", false)
	firstID, firstOTP := first.ID, first.OTP.Value

	// Abandoned registration retried with different details.
	fx.register(t, "Ada Lovelace", "ada@example.com", "second-pass")

	second := fx.repo.storedByEmail(t, "ada@example.com", false)
	if second.ID != firstID {
		t.Error("re-registration must overwrite the shadow record, not create a new one")
	}
	if second.Name != "Ada Lovelace" {
		t.Errorf("name = %q, want the re-submitted name", second.Name)
	}
	if second.OTP.Value == firstOTP && second.OTP.ExpiresAt.Equal(first.OTP.ExpiresAt) {
		t.Error("re-registration must issue a fresh OTP")
	}
	// The second OTP is the one that has to work.
	fx.verify(t, "ada@example.com")
}

func TestRegister_EmailFailureRollsBackOTP(t *testing.T) {
	fx := newAuthFixture(t)
	fx.notifier.failErr = errors.New("smtp: connection refused")

	_, err := fx.svc.Register(context.Background(), "Ada", "ada@example.com", "secret99")
	if !errors.Is(err, apperror.ErrEmailDelivery) {
		t.Fatalf("err = %v, want email delivery error", err)
	}

	// The record survives for retry, but without a code nobody received.
	stored := fx.repo.storedByEmail(t, "ada@example.com", false)
	if stored.OTP != nil {
		t.Error("undelivered OTP must be cleared from the record")
	}
	if stored.PasswordHash == "" {
		t.Error("the password hash must survive the rollback")
	}

	// A later attempt with working mail succeeds against the same record.
	fx.notifier.failErr = nil
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
}

func TestVerifyOTP_HappyPath(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")

	res := fx.verify(t, "ada@example.com")

	if !res.User.IsVerified {
		t.Error("result user must be verified")
	}
	claims, err := fx.tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("issued token must validate: %v", err)
	}
	if claims.Subject != res.User.ID {
		t.Errorf("token subject = %q, want %q", claims.Subject, res.User.ID)
	}

	stored := fx.repo.stored(t, res.User.ID)
	if !stored.IsVerified {
		t.Error("stored account must be verified")
	}
	if stored.OTP != nil {
		t.Error("a consumed OTP must be cleared")
	}
	if stored.LastLogin.IsZero() {
		t.Error("verification counts as the first login")
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")

	_, err := fx.svc.VerifyOTP(context.Background(), "ada@example.com", "000000")
	if !errors.Is(err, apperror.ErrInvalidCredential) {
		t.Fatalf("err = %v, want invalid credential", err)
	}
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")

	stored := fx.repo.storedByEmail(t, "ada@example.com", false)
	stored.OTP.ExpiresAt = time.Now().Add(-time.Minute)

	expiredErr := func() error {
		_, err := fx.svc.VerifyOTP(context.Background(), "ada@example.com", stored.OTP.Value)
		return err
	}()
	if !errors.Is(expiredErr, apperror.ErrInvalidCredential) {
		t.Fatalf("err = %v, want invalid credential", expiredErr)
	}

	// Expired and wrong must be indistinguishable to the caller.
	_, wrongErr := fx.svc.VerifyOTP(context.Background(), "ada@example.com", "000000")
	if expiredErr.Error() != wrongErr.Error() {
		t.Errorf("expired (%q) and wrong (%q) OTP messages must match", expiredErr, wrongErr)
	}
}

func TestVerifyOTP_UnknownOrAlreadyVerified(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")

	for _, emailAddr := range []string{"nobody@example.com", "ada@example.com"} {
		_, err := fx.svc.VerifyOTP(context.Background(), emailAddr, "123456")
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("VerifyOTP(%s) err = %v, want not found", emailAddr, err)
		}
	}
}

func TestVerifyOTP_SingleUse(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	otp := fx.repo.storedByEmail(t, "ada@example.com", false).OTP.Value
	fx.verify(t, "ada@example.com")

	_, err := fx.svc.VerifyOTP(context.Background(), "ada@example.com", otp)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("replayed OTP err = %v, want not found", err)
	}
}

func TestLogin_HappyPath(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")

	res, err := fx.svc.Login(context.Background(), "ada@example.com", "secret99")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := fx.tokens.Validate(res.Token); err != nil {
		t.Errorf("issued token must validate: %v", err)
	}
	if res.User.Email != "ada@example.com" {
		t.Errorf("user email = %q", res.User.Email)
	}
}

func TestLogin_UnverifiedAccount(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")

	_, err := fx.svc.Login(context.Background(), "ada@example.com", "secret99")
	if !errors.Is(err, apperror.ErrUnverified) {
		t.Fatalf("err = %v, want unverified", err)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailCollapse(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")

	_, wrongPass := fx.svc.Login(context.Background(), "ada@example.com", "nope-nope")
	_, unknown := fx.svc.Login(context.Background(), "ghost@example.com", "whatever1")

	if !errors.Is(wrongPass, apperror.ErrInvalidCredential) {
		t.Fatalf("wrong password err = %v", wrongPass)
	}
	if !errors.Is(unknown, apperror.ErrInvalidCredential) {
		t.Fatalf("unknown email err = %v", unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Errorf("messages must be identical: %q vs %q", wrongPass, unknown)
	}
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	fx := newAuthFixture(t)

	if err := fx.svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error, got %v", err)
	}
	if len(fx.notifier.sent) != 0 {
		t.Error("no email must be sent for an unknown address")
	}
}

func TestForgotPassword_StoresDigestNotPlaintext(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")

	plaintext := fx.requestReset(t, "ada@example.com")

	stored := fx.repo.storedByEmail(t, "ada@example.com", true)
	if stored.ResetToken == nil {
		t.Fatal("a pending reset token must be stored")
	}
	if stored.ResetToken.Value == plaintext {
		t.Error("the plaintext token must never be stored")
	}
	if stored.ResetToken.Value != auth.HashToken(plaintext) {
		t.Error("the stored value must be the digest of the emailed token")
	}
}

func TestForgotPassword_EmailFailureRollsBackToken(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
	fx.notifier.failErr = errors.New("smtp: timeout")

	err := fx.svc.ForgotPassword(context.Background(), "ada@example.com")
	if !errors.Is(err, apperror.ErrEmailDelivery) {
		t.Fatalf("err = %v, want email delivery error", err)
	}

	stored := fx.repo.storedByEmail(t, "ada@example.com", true)
	if stored.ResetToken != nil {
		t.Error("undelivered reset token must be cleared")
	}
	if stored.PasswordHash == "" {
		t.Error("password hash must survive the rollback")
	}
}

func TestVerifyResetToken(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
	plaintext := fx.requestReset(t, "ada@example.com")

	if err := fx.svc.VerifyResetToken(context.Background(), plaintext); err != nil {
		t.Errorf("valid token must verify, got %v", err)
	}
	if err := fx.svc.VerifyResetToken(context.Background(), "bogus-token"); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("bogus token err = %v, want invalid token", err)
	}
	if err := fx.svc.VerifyResetToken(context.Background(), ""); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("empty token err = %v, want invalid token", err)
	}

	// Expired token fails the same way as a bogus one.
	stored := fx.repo.storedByEmail(t, "ada@example.com", true)
	stored.ResetToken.ExpiresAt = time.Now().Add(-time.Minute)
	if err := fx.svc.VerifyResetToken(context.Background(), plaintext); !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("expired token err = %v, want invalid token", err)
	}
}

func TestResetPassword_HappyPath(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	verifyRes := fx.verify(t, "ada@example.com")
	plaintext := fx.requestReset(t, "ada@example.com")

	if err := fx.svc.ResetPassword(context.Background(), plaintext, "brand-new-pass"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}

	// Old password out, new password in.
	if _, err := fx.svc.Login(context.Background(), "ada@example.com", "secret99"); err == nil {
		t.Error("old password must stop working")
	}
	if _, err := fx.svc.Login(context.Background(), "ada@example.com", "brand-new-pass"); err != nil {
		t.Errorf("new password must work, got %v", err)
	}

	stored := fx.repo.storedByEmail(t, "ada@example.com", true)
	if stored.PasswordChangedAt.IsZero() || !stored.PasswordChangedAt.Before(time.Now()) {
		t.Error("PasswordChangedAt must be set strictly in the past")
	}
	if stored.ResetToken != nil {
		t.Error("a consumed reset token must be cleared")
	}

	// The reset token still parses cryptographically; it dies at the
	// middleware's issued-at check. The backdate is one second, so compare
	// against an issue time clearly before the reset.
	if _, err := fx.tokens.Validate(verifyRes.Token); err != nil {
		t.Fatalf("pre-reset token should still parse: %v", err)
	}
	if !stored.ChangedPasswordAfter(time.Now().Add(-time.Hour)) {
		t.Error("a session issued an hour before the reset must compare as stale")
	}
}

func TestResetPassword_SingleUse(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
	plaintext := fx.requestReset(t, "ada@example.com")

	if err := fx.svc.ResetPassword(context.Background(), plaintext, "brand-new-pass"); err != nil {
		t.Fatalf("first reset: %v", err)
	}
	err := fx.svc.ResetPassword(context.Background(), plaintext, "another-pass1")
	if !errors.Is(err, apperror.ErrInvalidToken) {
		t.Fatalf("replayed token err = %v, want invalid token", err)
	}
}

func TestResetPassword_ShortPassword(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
	plaintext := fx.requestReset(t, "ada@example.com")

	err := fx.svc.ResetPassword(context.Background(), plaintext, "123")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	// The too-short attempt must not consume the token.
	if err := fx.svc.ResetPassword(context.Background(), plaintext, "long-enough-1"); err != nil {
		t.Errorf("token must still be usable, got %v", err)
	}
}

func TestGoogle_Unconfigured(t *testing.T) {
	fx := newAuthFixture(t)
	fx.svc.google = nil

	if _, err := fx.svc.GoogleAuthURL(); !errors.Is(err, apperror.ErrConfiguration) {
		t.Fatalf("GoogleAuthURL err = %v, want configuration error", err)
	}
	if _, err := fx.svc.LoginWithGoogle(context.Background(), "code"); !errors.Is(err, apperror.ErrConfiguration) {
		t.Fatalf("LoginWithGoogle err = %v, want configuration error", err)
	}
}

func TestLoginWithGoogle_NewAccount(t *testing.T) {
	fx := newAuthFixture(t)
	fx.google.user = &auth.GoogleUser{
		ID:      "g-123",
		Email:   "ada@example.com",
		Name:    "Ada Lovelace",
		Picture: "https://lh3.example.com/a.png",
	}

	res, err := fx.svc.LoginWithGoogle(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	stored := fx.repo.stored(t, res.User.ID)
	if !stored.IsVerified {
		t.Error("Google accounts are verified on creation")
	}
	if stored.Provider != model.ProviderGoogle {
		t.Errorf("provider = %q, want google", stored.Provider)
	}
	if stored.GoogleID != "g-123" {
		t.Errorf("googleID = %q", stored.GoogleID)
	}
	if stored.Role != model.RoleStudent {
		t.Errorf("role = %q, want the default student role", stored.Role)
	}

	claims, err := fx.tokens.Validate(res.Token)
	if err != nil {
		t.Fatalf("issued token must validate: %v", err)
	}
	if claims.Email != "ada@example.com" {
		t.Errorf("OAuth tokens must carry identity claims, email = %q", claims.Email)
	}
}

func TestLoginWithGoogle_LinksExistingLocalAccount(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.verify(t, "ada@example.com")
	fx.google.user = &auth.GoogleUser{ID: "g-123", Email: "ada@example.com", Name: "Ada"}

	res, err := fx.svc.LoginWithGoogle(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	stored := fx.repo.stored(t, res.User.ID)
	if stored.GoogleID != "g-123" {
		t.Error("existing account must be linked to the Google subject")
	}
	if stored.Provider != model.ProviderGoogle {
		t.Errorf("provider = %q, want google after linking", stored.Provider)
	}

	// The local password must keep working after the link.
	if _, err := fx.svc.Login(context.Background(), "ada@example.com", "secret99"); err != nil {
		t.Errorf("password login must survive Google linking, got %v", err)
	}
}

func TestLoginWithGoogle_PromotesUnverifiedAccount(t *testing.T) {
	fx := newAuthFixture(t)
	fx.register(t, "Ada", "ada@example.com", "secret99")
	fx.google.user = &auth.GoogleUser{ID: "g-123", Email: "ada@example.com", Name: "Ada"}

	res, err := fx.svc.LoginWithGoogle(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("LoginWithGoogle() error = %v", err)
	}

	stored := fx.repo.stored(t, res.User.ID)
	if !stored.IsVerified {
		t.Error("Google sign-in must promote the shadow record to verified")
	}
	if stored.OTP != nil {
		t.Error("the pending OTP must be dropped, the email is proven")
	}
}

func TestLoginWithGoogle_ExchangeFailure(t *testing.T) {
	fx := newAuthFixture(t)
	fx.google.err = errors.New("oauth2: invalid_grant")

	_, err := fx.svc.LoginWithGoogle(context.Background(), "bad-code")
	if !errors.Is(err, apperror.ErrExternalAuth) {
		t.Fatalf("err = %v, want external auth error", err)
	}
}
