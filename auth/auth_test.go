package auth_test

import (
	"testing"
	"time"

	"poker-lab/auth"
	"poker-lab/errors"

	"github.com/stretchr/testify/require"
)

func Test_Password_HashAndVerify(t *testing.T) {
	req := require.New(t)

	hash, err := auth.HashPassword("Sup3rSecret")
	req.NoError(err)
	req.Contains(hash, "$argon2id$")

	req.NoError(auth.VerifyPassword("Sup3rSecret", hash))
	req.ErrorIs(auth.VerifyPassword("wrong", hash), errors.ErrInvalidCredentials)
}

func Test_Password_DistinctSaltsDistinctHashes(t *testing.T) {
	req := require.New(t)
	a, err := auth.HashPassword("Sup3rSecret")
	req.NoError(err)
	b, err := auth.HashPassword("Sup3rSecret")
	req.NoError(err)
	req.NotEqual(a, b)
}

func Test_Password_GarbageHashRejected(t *testing.T) {
	require.ErrorIs(t, auth.VerifyPassword("x", "not-a-hash"), errors.ErrInvalidCredentials)
}

func Test_Token_RoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("user-42", "alice", time.Now())
	req.NoError(err)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-42", claims.Subject)
	req.Equal("alice", claims.UserName)
}

func Test_Token_ExpiredRejected(t *testing.T) {
	req := require.New(t)
	issuer := auth.NewTokenIssuer("test-secret", time.Minute)

	token, err := issuer.Generate("user-42", "alice", time.Now().Add(-time.Hour))
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_Token_WrongSecretRejected(t *testing.T) {
	req := require.New(t)
	token, err := auth.NewTokenIssuer("secret-a", time.Hour).Generate("user-42", "alice", time.Now())
	req.NoError(err)

	_, err = auth.NewTokenIssuer("secret-b", time.Hour).Validate(token)
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func Test_ValidateUserName(t *testing.T) {
	req := require.New(t)
	req.NoError(auth.ValidateUserName("alice_42"))
	req.ErrorIs(auth.ValidateUserName("bad name"), errors.ErrMalformed)
	req.ErrorIs(auth.ValidateUserName("p@ssword"), errors.ErrMalformed)
}

func Test_ValidatePassword(t *testing.T) {
	req := require.New(t)
	req.NoError(auth.ValidatePassword("Sup3rSecret"))
	req.ErrorIs(auth.ValidatePassword("short1A"), errors.ErrInvalidPassword)
	req.ErrorIs(auth.ValidatePassword("alllowercase1"), errors.ErrInvalidPassword)
	req.ErrorIs(auth.ValidatePassword("NODIGITSHERE"), errors.ErrInvalidPassword)
}
