package otp

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"propdesk/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDemoIssuer(t *testing.T) {
	ctx := context.Background()
	var issuer DemoIssuer

	code, err := issuer.Issue(ctx, "CUS-5001")
	require.NoError(t, err)
	assert.Equal(t, "123456", code)

	for _, target := range []string{"CUS-5001", "CUS-9999", ""} {
		ok, err := issuer.Verify(ctx, target, "123456")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	for _, bad := range []string{"000000", "", " 123456", "123456 ", "12345", "1234567"} {
		ok, err := issuer.Verify(ctx, "CUS-5001", bad)
		require.NoError(t, err)
		assert.False(t, ok, "code %q", bad)
	}
}

type recordingSender struct {
	codes map[string]string
	err   error
}

func (s *recordingSender) Send(ctx context.Context, target, code string) error {
	if s.err != nil {
		return s.err
	}
	if s.codes == nil {
		s.codes = map[string]string{}
	}
	s.codes[target] = code
	return nil
}

func newTestIssuer(sender Sender) (*RandomIssuer, *repository.MemoryCodeStore) {
	store := repository.NewMemoryCodeStore()
	issuer := NewRandomIssuer(store, sender, time.Hour, 6)
	issuer.cost = bcrypt.MinCost
	return issuer, store
}

func TestRandomIssuer(t *testing.T) {
	ctx := context.Background()

	t.Run("IssueAndVerify", func(t *testing.T) {
		sender := &recordingSender{}
		issuer, _ := newTestIssuer(sender)

		code, err := issuer.Issue(ctx, "CUS-5002")
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Equal(t, code, sender.codes["CUS-5002"])

		ok, err := issuer.Verify(ctx, "CUS-5002", "not-it")
		require.NoError(t, err)
		assert.False(t, ok)

		// unlimited retries
		for i := 0; i < 5; i++ {
			ok, _ = issuer.Verify(ctx, "CUS-5002", "999999x")
			assert.False(t, ok)
		}

		ok, err = issuer.Verify(ctx, "CUS-5002", code)
		require.NoError(t, err)
		assert.True(t, ok)

		// consumed
		ok, err = issuer.Verify(ctx, "CUS-5002", code)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("StoresHashNotCode", func(t *testing.T) {
		issuer, store := newTestIssuer(nil)
		code, err := issuer.Issue(ctx, "CUS-5003")
		require.NoError(t, err)

		hash, err := store.GetCode(ctx, "CUS-5003")
		require.NoError(t, err)
		require.NotNil(t, hash)
		assert.NotEqual(t, code, string(hash))
		assert.True(t, bytes.HasPrefix(hash, []byte("$2a$")))
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		issuer, _ := newTestIssuer(nil)
		ok, err := issuer.Verify(ctx, "CUS-none", "123456")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CodesAreTargetScoped", func(t *testing.T) {
		issuer, _ := newTestIssuer(nil)
		codeA, _ := issuer.Issue(ctx, "A")
		_, _ = issuer.Issue(ctx, "B")

		ok, _ := issuer.Verify(ctx, "A", codeA)
		assert.True(t, ok)
	})

	t.Run("SenderError", func(t *testing.T) {
		issuer, _ := newTestIssuer(&recordingSender{err: errors.New("gateway down")})
		_, err := issuer.Issue(ctx, "CUS-5004")
		assert.Error(t, err)
	})

	t.Run("Defaults", func(t *testing.T) {
		issuer := NewRandomIssuer(repository.NewMemoryCodeStore(), nil, 0, 0)
		assert.Equal(t, 6, issuer.length)
		assert.Equal(t, 48*time.Hour, issuer.ttl)
	})
}

func TestGenerateCode(t *testing.T) {
	for _, n := range []int{4, 6, 8} {
		code, err := generateCode(n)
		require.NoError(t, err)
		assert.Len(t, code, n)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	require.NoError(t, LogSender{Logger: &logger}.Send(context.Background(), "CUS-1", "424242"))
	assert.Contains(t, buf.String(), "424242")
}
