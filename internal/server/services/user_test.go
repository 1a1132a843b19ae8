package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/dbx"
	"github.com/adarshn/notebox/internal/server/auth"
	"github.com/adarshn/notebox/internal/server/config"
	"github.com/adarshn/notebox/internal/server/models"
	notesrepo "github.com/adarshn/notebox/internal/server/repositories/notes"
	usersrepo "github.com/adarshn/notebox/internal/server/repositories/users"
)

// --- fakes ---

type fakeUsersRepo struct {
	byID map[string]*models.User

	setRefreshErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[string]*models.User{}}
}

func (f *fakeUsersRepo) add(u *models.User) *models.User {
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	for _, existing := range f.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	return f.add(u), nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == login || u.Email == strings.ToLower(login) {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	for _, u := range f.byID {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	for _, u := range f.byID {
		if u.VerificationToken != "" && u.VerificationToken == token {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeUsersRepo) UpdateProfile(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := f.byID[u.ID]; !ok {
		return nil, common.ErrNotFound
	}
	return f.add(u), nil
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.IsVerified = true
	u.VerificationToken = ""
	return nil
}

func (f *fakeUsersRepo) SetRefreshToken(ctx context.Context, id, token string) error {
	if f.setRefreshErr != nil {
		return f.setRefreshErr
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.RefreshToken = token
	return nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) UpdateAccount(ctx context.Context, id, username, fullname string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	for _, other := range f.byID {
		if other.ID != id && other.Username == username {
			return nil, common.ErrAlreadyExists
		}
	}
	u.Username = username
	u.Fullname = fullname
	return u, nil
}

func (f *fakeUsersRepo) UpdateAvatar(ctx context.Context, id, avatarURL string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	u.AvatarURL = avatarURL
	return u, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	n *fakeNotesRepo
}

func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }
func (m *fakeRepoManager) Notes(db dbx.DBTX) notesrepo.Repository { return m.n }
func (m *fakeRepoManager) RunMigrations(context.Context) error    { return nil }
func (m *fakeRepoManager) Conn() *sql.DB                          { return nil }
func (m *fakeRepoManager) Close() error                           { return nil }

type sentMail struct {
	to    string
	token string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerificationEmail(ctx context.Context, to, fullname, token string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, token: token})
	return nil
}

type fakeAvatarStore struct {
	uploads   int
	deleted   []string
	uploadErr error
}

func (f *fakeAvatarStore) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads++
	return fmt.Sprintf("http://s3/avatars/%d.png", f.uploads), nil
}

func (f *fakeAvatarStore) Delete(ctx context.Context, avatarURL string) error {
	f.deleted = append(f.deleted, avatarURL)
	return nil
}

func newTestUserService(repo *fakeUsersRepo, mailer *fakeMailer, store *fakeAvatarStore) *UserService {
	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	return NewUserService(nil, &fakeRepoManager{u: repo}, mailer, store, cfg)
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Username:          "alice",
		Email:             "alice@example.com",
		Fullname:          "Alice A",
		Password:          "secret1",
		Avatar:            []byte("png-bytes"),
		AvatarContentType: "image/png",
	}
}

func seedVerifiedUser(t *testing.T, repo *fakeUsersRepo, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return repo.add(&models.User{
		ID:           "u-1",
		Username:     "alice",
		Email:        "alice@example.com",
		Fullname:     "Alice A",
		PasswordHash: hash,
		IsVerified:   true,
	})
}

// --- tests ---

func TestRegister_Success(t *testing.T) {
	repo := newFakeUsersRepo()
	mailer := &fakeMailer{}
	s := newTestUserService(repo, mailer, &fakeAvatarStore{})

	user, resent, err := s.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if resent {
		t.Fatal("resent should be false for a new account")
	}
	if user.IsVerified {
		t.Fatal("new account must start unverified")
	}
	if user.VerificationToken == "" {
		t.Fatal("verification token not set")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "alice@example.com" {
		t.Fatalf("unexpected mail log: %+v", mailer.sent)
	}
	if mailer.sent[0].token != user.VerificationToken {
		t.Fatal("mailed token differs from stored token")
	}
}

func TestRegister_VerifiedDuplicate(t *testing.T) {
	repo := newFakeUsersRepo()
	seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	_, _, err := s.Register(context.Background(), validRegisterInput())
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestRegister_UnverifiedDuplicateResends(t *testing.T) {
	repo := newFakeUsersRepo()
	repo.add(&models.User{
		ID: "u-1", Username: "alice", Email: "alice@example.com",
		Fullname: "Old Name", VerificationToken: "old-token",
	})
	mailer := &fakeMailer{}
	s := newTestUserService(repo, mailer, &fakeAvatarStore{})

	user, resent, err := s.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if !resent {
		t.Fatal("resent should be true for an unverified duplicate")
	}
	if user.ID != "u-1" {
		t.Fatalf("expected existing record reused, got id %q", user.ID)
	}
	if user.Fullname != "Alice A" {
		t.Fatalf("profile not overwritten: %+v", user)
	}
	if user.VerificationToken == "old-token" || user.VerificationToken == "" {
		t.Fatal("verification token not regenerated")
	}
	if len(mailer.sent) != 1 || mailer.sent[0].token != user.VerificationToken {
		t.Fatalf("unexpected mail log: %+v", mailer.sent)
	}
}

func TestRegister_MissingAvatar(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), &fakeMailer{}, &fakeAvatarStore{})

	in := validRegisterInput()
	in.Avatar = nil
	_, _, err := s.Register(context.Background(), in)
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestRegister_ShortPassword(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), &fakeMailer{}, &fakeAvatarStore{})

	in := validRegisterInput()
	in.Password = "abc"
	_, _, err := s.Register(context.Background(), in)
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestRegister_MailerFailureSurfaces(t *testing.T) {
	repo := newFakeUsersRepo()
	s := newTestUserService(repo, &fakeMailer{err: errors.New("smtp down")}, &fakeAvatarStore{})

	_, _, err := s.Register(context.Background(), validRegisterInput())
	if err == nil || !strings.Contains(err.Error(), "verification email") {
		t.Fatalf("expected mail dispatch error, got %v", err)
	}
	// The record stays in place awaiting a retry via re-registration.
	if len(repo.byID) != 1 {
		t.Fatalf("expected pending record to persist, have %d", len(repo.byID))
	}
}

func TestVerifyEmail_Flow(t *testing.T) {
	repo := newFakeUsersRepo()
	mailer := &fakeMailer{}
	s := newTestUserService(repo, mailer, &fakeAvatarStore{})

	user, _, err := s.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// Login before verification is rejected.
	if _, _, err := s.Login(context.Background(), "alice", "secret1"); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("want common.ErrUnauthorized before verification, got %v", err)
	}

	if err := s.VerifyEmail(context.Background(), mailer.sent[0].token); err != nil {
		t.Fatalf("VerifyEmail error: %v", err)
	}

	stored := repo.byID[user.ID]
	if !stored.IsVerified || stored.VerificationToken != "" {
		t.Fatalf("verification did not stick: %+v", stored)
	}

	// Same token is single-use.
	if err := s.VerifyEmail(context.Background(), mailer.sent[0].token); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound on reused token, got %v", err)
	}

	if _, _, err := s.Login(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("Login after verification error: %v", err)
	}
}

func TestVerifyEmail_UnknownToken(t *testing.T) {
	repo := newFakeUsersRepo()
	repo.add(&models.User{ID: "u-1", Username: "alice", VerificationToken: "real-token"})
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	err := s.VerifyEmail(context.Background(), "bogus-token")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
	if repo.byID["u-1"].IsVerified {
		t.Fatal("unknown token must not verify any record")
	}
}

func TestLogin_Success(t *testing.T) {
	repo := newFakeUsersRepo()
	seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	user, pair, err := s.Login(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token pair")
	}
	if repo.byID[user.ID].RefreshToken != pair.RefreshToken {
		t.Fatal("refresh token not persisted as the active one")
	}
}

func TestLogin_ByEmail(t *testing.T) {
	repo := newFakeUsersRepo()
	seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	if _, _, err := s.Login(context.Background(), "Alice@Example.com", "secret1"); err != nil {
		t.Fatalf("Login by email error: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newFakeUsersRepo()
	seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	_, _, err := s.Login(context.Background(), "alice", "wrong-pass")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), &fakeMailer{}, &fakeAvatarStore{})

	_, _, err := s.Login(context.Background(), "ghost", "secret1")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestRefresh_Success(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	token, err := auth.GenerateRefreshToken(user, []byte("refresh-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}
	user.RefreshToken = token

	pair, err := s.Refresh(context.Background(), token)
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty token pair")
	}
	if repo.byID[user.ID].RefreshToken != pair.RefreshToken {
		t.Fatal("rotated token not persisted")
	}
}

func TestRefresh_RotatedTokenRejected(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	presented, err := auth.GenerateRefreshToken(user, []byte("refresh-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}
	// A different token is the active one: presented is valid JWT-wise but
	// has already been rotated out.
	user.RefreshToken = "some-newer-token"

	_, err = s.Refresh(context.Background(), presented)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_WrongSecret(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	forged, err := auth.GenerateRefreshToken(user, []byte("not-the-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	_, err = s.Refresh(context.Background(), forged)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_EmptyToken(t *testing.T) {
	s := newTestUserService(newFakeUsersRepo(), &fakeMailer{}, &fakeAvatarStore{})

	_, err := s.Refresh(context.Background(), "")
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken, got %v", err)
	}
}

func TestLogout_ClearsRefreshToken(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	token, err := auth.GenerateRefreshToken(user, []byte("refresh-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}
	user.RefreshToken = token

	if err := s.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if user.RefreshToken != "" {
		t.Fatal("refresh token not cleared")
	}

	// The cleared token can no longer refresh.
	if _, err := s.Refresh(context.Background(), token); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want common.ErrInvalidToken after logout, got %v", err)
	}
}

func TestChangePassword_Success(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	err := s.ChangePassword(context.Background(), user.ID, "secret1", "newsecret", "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}
	if !auth.CheckPassword("newsecret", user.PasswordHash) {
		t.Fatal("new password does not verify")
	}
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	err := s.ChangePassword(context.Background(), user.ID, "nope", "newsecret", "newsecret")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestChangePassword_ConfirmMismatch(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	err := s.ChangePassword(context.Background(), user.ID, "secret1", "newsecret", "other")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}

func TestUpdateAccount_UsernameTaken(t *testing.T) {
	repo := newFakeUsersRepo()
	seedVerifiedUser(t, repo, "secret1")
	repo.add(&models.User{ID: "u-2", Username: "bob", Email: "bob@example.com", IsVerified: true})
	s := newTestUserService(repo, &fakeMailer{}, &fakeAvatarStore{})

	_, err := s.UpdateAccount(context.Background(), "u-2", "alice", "Bob B")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
}

func TestUpdateAvatar_SwapsAndDeletesOld(t *testing.T) {
	repo := newFakeUsersRepo()
	user := seedVerifiedUser(t, repo, "secret1")
	user.AvatarURL = "http://s3/avatars/old.png"
	store := &fakeAvatarStore{}
	s := newTestUserService(repo, &fakeMailer{}, store)

	updated, err := s.UpdateAvatar(context.Background(), user.ID, []byte("new-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UpdateAvatar error: %v", err)
	}
	if updated.AvatarURL == "http://s3/avatars/old.png" {
		t.Fatal("avatar URL not swapped")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "http://s3/avatars/old.png" {
		t.Fatalf("old avatar not deleted: %+v", store.deleted)
	}
}
