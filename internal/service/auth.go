package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/piyushmaurya04/expense-tracker/internal/lib/password"
	"github.com/piyushmaurya04/expense-tracker/internal/models"
	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
	"github.com/piyushmaurya04/expense-tracker/internal/pkg/redact"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
)

// ProfileUpdate — частичное обновление профиля; nil-поля не меняются.
type ProfileUpdate struct {
	Username *string
	Email    *string
}

// Register регистрирует нового пользователя. Токены не выпускаются:
// для получения сессии нужен отдельный Login.
// Уникальность проверяется последовательно: сначала username, затем email.
func (s *Service) Register(ctx context.Context, username, email, plain string) (*models.User, error) {
	const op = "service.auth.Register"

	username = strings.TrimSpace(username)
	normEmail, emailProblem := normalizeEmail(email)

	fields := map[string]string{}
	if problem := usernameProblem(username); problem != "" {
		fields["username"] = problem
	}
	if emailProblem != "" {
		fields["email"] = emailProblem
	}
	if plain == "" {
		fields["password"] = "must not be blank"
	}
	if len(fields) > 0 {
		return nil, fmt.Errorf("%s: %w", op, ValidationError(fields))
	}

	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("username", redact.Username(username)),
		slog.String("email", redact.Email(normEmail)),
	)

	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.ensureEmailFree(ctx, normEmail, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, fmt.Errorf("%s: %w", op, ValidationError(map[string]string{"password": "must be at most 72 bytes"}))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Username:     username,
		Email:        normEmail,
		PasswordHash: hash,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		// гонка двух регистраций: проверки прошли, но БД отклонила вставку.
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, fmt.Errorf("%s: %w", op, mapped)
		}

		lg.Error("register_save_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_registered", slog.Int64("user_id", user.ID))

	return user, nil
}

// Login выполняет вход по username+пароль и выпускает сессию.
// Неизвестный username и неверный пароль дают одну и ту же ErrBadCredentials.
// Новый refresh-токен вытесняет все прежние токены пользователя.
func (s *Service) Login(ctx context.Context, username, plain string) (*models.Session, error) {
	const op = "service.auth.Login"

	username = strings.TrimSpace(username)
	lg := log.From(ctx).With(
		slog.String("op", op),
		slog.String("username", redact.Username(username)),
	)

	if username == "" || plain == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrBadCredentials)
	}

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_bad_credentials")
			return nil, fmt.Errorf("%s: %w", op, ErrBadCredentials)
		}

		lg.Error("login_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !s.hasher.Verify(plain, user.PasswordHash) {
		lg.Info("login_bad_credentials")
		return nil, fmt.Errorf("%s: %w", op, ErrBadCredentials)
	}

	access, err := s.issueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := s.refresh.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("login_ok", slog.Int64("user_id", user.ID))

	access.RefreshToken = refresh.Token

	return access, nil
}

// Refresh выпускает новый access-токен по refresh-токену.
// Refresh-токен не ротируется: в ответе та же строка, что и на входе.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	const op = "service.auth.Refresh"

	token, err := s.refresh.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err = s.refresh.VerifyNotExpired(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.issueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session.RefreshToken = token.Token

	return session, nil
}

// Logout удаляет все refresh-токены пользователя. Уже выданные access-токены
// остаются действительными до естественного истечения.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	const op = "service.auth.Logout"

	if err := s.refresh.DeleteAllForUser(ctx, userID); err != nil {
		log.From(ctx).Error("logout_failed",
			slog.String("op", op),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("logout_ok", slog.String("op", op), slog.Int64("user_id", userID))

	return nil
}

// Profile возвращает пользователя по ID.
func (s *Service) Profile(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.auth.Profile"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateProfile меняет username и/или email. Значение, совпадающее с текущим,
// конфликтом не считается; совпадение с другим пользователем — ErrUsernameTaken/ErrEmailTaken.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	const op = "service.auth.UpdateProfile"

	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	changed := false

	if upd.Username != nil {
		name := strings.TrimSpace(*upd.Username)
		if problem := usernameProblem(name); problem != "" {
			return nil, fmt.Errorf("%s: %w", op, ValidationError(map[string]string{"username": problem}))
		}
		if name != user.Username {
			if err := s.ensureUsernameFree(ctx, name, user.ID); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			user.Username = name
			changed = true
		}
	}

	if upd.Email != nil {
		email, problem := normalizeEmail(*upd.Email)
		if problem != "" {
			return nil, fmt.Errorf("%s: %w", op, ValidationError(map[string]string{"email": problem}))
		}
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			user.Email = email
			changed = true
		}
	}

	if !changed {
		return user, nil
	}

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, fmt.Errorf("%s: %w", op, mapped)
		}
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("profile_updated", slog.String("op", op), slog.Int64("user_id", user.ID))

	return user, nil
}

// Authenticate проверяет access-токен и восстанавливает принципала
// по subject (username). Любая ошибка проверки — ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	const op = "service.auth.Authenticate"

	subject, err := s.tokens.Verify(accessToken, s.now())
	if err != nil {
		return models.Principal{}, fmt.Errorf("%s: %w: %v", op, ErrUnauthorized, err)
	}

	user, err := s.storage.UserByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}

		return models.Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Principal(), nil
}

// issueAccessToken выпускает access-токен для пользователя.
func (s *Service) issueAccessToken(user *models.User) (*models.Session, error) {
	const op = "service.auth.issueAccessToken"

	access, expiresAt, err := s.tokens.Issue(user.Username, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.Session{
		AccessToken:     access,
		AccessExpiresAt: expiresAt,
		Principal:       user.Principal(),
	}, nil
}

// ensureUsernameFree проверяет, что username не занят никем, кроме selfID.
func (s *Service) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	other, err := s.storage.UserByUsername(ctx, username)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return ErrUsernameTaken
	default:
		return nil
	}
}

// ensureEmailFree проверяет, что email не занят никем, кроме selfID.
func (s *Service) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	other, err := s.storage.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != selfID:
		return ErrEmailTaken
	default:
		return nil
	}
}

// mapUniqueViolation переводит нарушение уникальности хранилища в ошибку сервиса.
func mapUniqueViolation(err error) error {
	switch {
	case errors.Is(err, storage.ErrUsernameExists):
		return ErrUsernameTaken
	case errors.Is(err, storage.ErrEmailExists):
		return ErrEmailTaken
	default:
		return nil
	}
}

// Границы длины username после обрезки пробелов.
const (
	usernameMinLen = 3
	usernameMaxLen = 20
)

// usernameProblem возвращает текст нарушения для уже обрезанного username или "".
func usernameProblem(name string) string {
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "must not be blank"
	case n < usernameMinLen || n > usernameMaxLen:
		return fmt.Sprintf("size must be between %d and %d", usernameMinLen, usernameMaxLen)
	default:
		return ""
	}
}

// normalizeEmail обрезает и приводит e-mail к нижнему регистру.
// Второе значение — текст нарушения или "".
func normalizeEmail(raw string) (string, string) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", "must not be blank"
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", "must be a well-formed email address"
	}

	return strings.ToLower(email), ""
}
