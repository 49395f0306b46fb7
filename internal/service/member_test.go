package service

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkravchenko/member-service/internal/events"
	"github.com/mkravchenko/member-service/internal/hash"
	"github.com/mkravchenko/member-service/internal/models"
	"github.com/mkravchenko/member-service/internal/repo"
	"github.com/mkravchenko/member-service/internal/tokens"
)

func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Member{}))

	return db
}

func newTestService(t *testing.T) *MemberService {
	t.Helper()

	return &MemberService{
		Repo:       repo.GormRepo{DB: initTestDB(t)},
		Codec:      tokens.NewCodec([]byte("test-jwt-secret"), "member-service"),
		Producer:   events.NewProducer(nil),
		AccessTTL:  time.Hour,
		RefreshTTL: 90 * 24 * time.Hour,
	}
}

const validPassword = "Abcd1234!"

func TestMemberService_Signup_Success(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "Al", res.Nickname)
	require.Len(t, res.Authorities, 1)
	assert.Equal(t, RoleUser, res.Authorities[0].Name)

	member, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, member.Role)
	assert.NotEqual(t, validPassword, member.PasswordHash)
	assert.True(t, hash.CheckPassword(member.PasswordHash, validPassword))

	require.NotEmpty(t, member.RefreshToken)
	assert.False(t, svc.Codec.IsExpired(member.RefreshToken))
	assert.False(t, svc.Codec.IsAccessToken(member.RefreshToken))
}

func TestMemberService_Signup_Conflict(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)

	res, err := svc.Signup(ctx, "alice", validPassword, "Al2")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemberService_Signup_PasswordPolicy(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		password string
	}{
		{name: "too short", password: "Ab1!"},
		{name: "no uppercase", password: "abcd1234!"},
		{name: "no lowercase", password: "ABCD1234!"},
		{name: "no digit", password: "Abcdefgh!"},
		{name: "no symbol", password: "Abcd1234"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Signup(ctx, "user_"+tt.name, tt.password, "nick")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrInvalidPassword)
		})
	}
}

func TestMemberService_SignIn_UnknownUsername(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	res, err := svc.SignIn(context.Background(), "nobody", validPassword)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemberService_SignIn_WrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)

	res, err := svc.SignIn(ctx, "alice", "Wrong1234!")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestMemberService_SignIn_Success_ReusesValidRefreshToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)

	stored, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)

	res, err := svc.SignIn(ctx, "alice", validPassword)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotEmpty(t, res.AccessToken)

	assert.True(t, svc.Codec.IsAccessToken(res.AccessToken))
	subject, err := svc.Codec.Subject(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	// the stored refresh token is still valid, so it is reused untouched
	assert.Equal(t, stored.RefreshToken, res.RefreshToken)

	again, err := svc.SignIn(ctx, "alice", validPassword)
	require.NoError(t, err)
	assert.Equal(t, res.RefreshToken, again.RefreshToken)
	assert.NotEqual(t, res.AccessToken, again.AccessToken)
}

func TestMemberService_SignIn_ReplacesExpiredRefreshToken(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)

	expiredCodec := tokens.NewCodec(svc.Codec.Secret, svc.Codec.Issuer)
	expiredCodec.Now = func() time.Time { return time.Now().UTC().Add(-200 * 24 * time.Hour) }
	expiredRefresh, err := expiredCodec.Create("alice", tokens.TypeRefresh, 90*24*time.Hour)
	require.NoError(t, err)
	require.NoError(t, svc.Repo.UpdateRefreshToken(ctx, "alice", expiredRefresh))

	res, err := svc.SignIn(ctx, "alice", validPassword)
	require.NoError(t, err)
	assert.NotEqual(t, expiredRefresh, res.RefreshToken)
	assert.False(t, svc.Codec.IsExpired(res.RefreshToken))

	member, err := svc.Repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, res.RefreshToken, member.RefreshToken)
}

func TestMemberService_Profile(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "alice", validPassword, "Al")
	require.NoError(t, err)

	profile, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "Al", profile.Nickname)

	missing, err := svc.Profile(ctx, "nobody")
	require.Error(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, err, ErrNotFound)
}
