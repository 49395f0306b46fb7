package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/mkravchenko/member-service/internal/events"
	"github.com/mkravchenko/member-service/internal/hash"
	"github.com/mkravchenko/member-service/internal/logging"
	"github.com/mkravchenko/member-service/internal/models"
	"github.com/mkravchenko/member-service/internal/repo"
	"github.com/mkravchenko/member-service/internal/tokens"
)

const RoleUser = "ROLE_USER"

var (
	ErrConflict        = errors.New("username already in use")
	ErrInvalidPassword = errors.New("password does not satisfy policy")
	ErrNotFound        = errors.New("no such member")
	ErrBadCredentials  = errors.New("password mismatch")
)

type MemberService struct {
	Repo       repo.GormRepo
	Codec      *tokens.Codec
	Producer   *events.Producer
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Authority struct {
	Name string `json:"name"`
}

type SignupResult struct {
	Username    string      `json:"username"`
	Nickname    string      `json:"nickname"`
	Authorities []Authority `json:"authorities"`
}

type SignInResult struct {
	AccessToken  string
	RefreshToken string
}

type Profile struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
}

const passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// validatePassword requires at least 8 characters with a lowercase, an
// uppercase, a digit and a punctuation symbol.
func validatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return lower && upper && digit && symbol
}

func (s *MemberService) Signup(ctx context.Context, username, password, nickname string) (*SignupResult, error) {
	l := logging.FromContext(ctx).With("svc", "member.signup", "username", username)

	taken, err := s.Repo.ExistsByUsername(ctx, username)
	if err != nil {
		l.Error("signup_failed", "reason", "existence check", "error", err)
		return nil, err
	}
	if taken {
		l.Warn("signup_rejected", "reason", "username taken")
		return nil, ErrConflict
	}

	if !validatePassword(password) {
		l.Warn("signup_rejected", "reason", "weak password")
		return nil, ErrInvalidPassword
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	refreshToken, err := s.Codec.Create(username, tokens.TypeRefresh, s.RefreshTTL)
	if err != nil {
		l.Error("signup_failed", "reason", "cannot mint refresh token", "error", err)
		return nil, err
	}

	member := models.Member{
		Username:     username,
		PasswordHash: pwHash,
		Nickname:     nickname,
		Role:         RoleUser,
		RefreshToken: refreshToken,
	}
	if err := s.Repo.CreateIfNotExists(ctx, &member); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			l.Warn("signup_rejected", "reason", "username taken")
			return nil, ErrConflict
		}
		l.Error("signup_failed", "error", err)
		return nil, err
	}

	if err := s.Producer.PublishEvent(ctx, username, map[string]any{
		"type":     "member_registered",
		"username": member.Username,
		"nickname": member.Nickname,
	}); err != nil {
		l.Error("event_publish_failed", "error", err)
	}

	l.Info("signup_successful")
	return &SignupResult{
		Username:    member.Username,
		Nickname:    member.Nickname,
		Authorities: []Authority{{Name: RoleUser}},
	}, nil
}

func (s *MemberService) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	l := logging.FromContext(ctx).With("svc", "member.sign_in", "username", username)

	member, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("sign_in_rejected", "reason", "unknown username")
			return nil, ErrNotFound
		}
		l.Error("sign_in_failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(member.PasswordHash, password) {
		l.Warn("sign_in_rejected", "reason", "bad credentials")
		return nil, ErrBadCredentials
	}

	// Reuse the stored refresh token while it is still valid; replace it
	// only when missing or expired.
	refreshToken := member.RefreshToken
	if refreshToken == "" || s.Codec.IsExpired(refreshToken) {
		refreshToken, err = s.Codec.Create(username, tokens.TypeRefresh, s.RefreshTTL)
		if err != nil {
			l.Error("sign_in_failed", "reason", "cannot mint refresh token", "error", err)
			return nil, err
		}
		if err := s.Repo.UpdateRefreshToken(ctx, username, refreshToken); err != nil {
			l.Error("sign_in_failed", "reason", "cannot persist refresh token", "error", err)
			return nil, err
		}
	}

	accessToken, err := s.Codec.Create(username, tokens.TypeAccess, s.AccessTTL)
	if err != nil {
		l.Error("sign_in_failed", "reason", "cannot mint access token", "error", err)
		return nil, err
	}

	if err := s.Producer.PublishEvent(ctx, username, map[string]any{
		"type":     "member_signed_in",
		"username": username,
	}); err != nil {
		l.Error("event_publish_failed", "error", err)
	}

	l.Info("sign_in_successful")
	return &SignInResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *MemberService) Profile(ctx context.Context, username string) (*Profile, error) {
	member, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Profile{
		Username: member.Username,
		Nickname: member.Nickname,
	}, nil
}
