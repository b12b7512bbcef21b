package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// DemoIssuer accepts the fixed demo code for every target.
type DemoIssuer struct{}

func (DemoIssuer) Issue(ctx context.Context, target string) (string, error) {
	return models.DemoOTPCode, nil
}

func (DemoIssuer) Verify(ctx context.Context, target, code string) (bool, error) {
	return code == models.DemoOTPCode, nil
}

// Sender delivers a freshly issued code to its target.
type Sender interface {
	Send(ctx context.Context, target, code string) error
}

// LogSender stands in for an SMS or email gateway.
type LogSender struct {
	Logger *zerolog.Logger
}

func (s LogSender) Send(ctx context.Context, target, code string) error {
	s.Logger.Info().Str("target", target).Str("code", code).Msg("otp delivered")
	return nil
}

// RandomIssuer generates numeric codes and keeps only their bcrypt hash.
// A code is consumed by a successful Verify; failed attempts are not counted.
type RandomIssuer struct {
	store  domain.CodeStore
	sender Sender
	ttl    time.Duration
	length int
	cost   int
}

func NewRandomIssuer(store domain.CodeStore, sender Sender, ttl time.Duration, length int) *RandomIssuer {
	if length <= 0 {
		length = len(models.DemoOTPCode)
	}
	if ttl <= 0 {
		ttl = models.DefaultSLAHours * time.Hour
	}
	return &RandomIssuer{
		store:  store,
		sender: sender,
		ttl:    ttl,
		length: length,
		cost:   bcrypt.DefaultCost,
	}
}

func (i *RandomIssuer) Issue(ctx context.Context, target string) (string, error) {
	code, err := generateCode(i.length)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), i.cost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	if err := i.store.SaveCode(ctx, target, hash, i.ttl); err != nil {
		return "", err
	}

	if i.sender != nil {
		if err := i.sender.Send(ctx, target, code); err != nil {
			return "", fmt.Errorf("send code: %w", err)
		}
	}
	return code, nil
}

func (i *RandomIssuer) Verify(ctx context.Context, target, code string) (bool, error) {
	hash, err := i.store.GetCode(ctx, target)
	if err != nil {
		return false, err
	}
	if hash == nil {
		return false, nil
	}

	err = bcrypt.CompareHashAndPassword(hash, []byte(code))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare code: %w", err)
	}

	if err := i.store.DeleteCode(ctx, target); err != nil {
		return false, err
	}
	return true, nil
}

func generateCode(length int) (string, error) {
	digits := make([]byte, length)
	ten := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

var (
	_ domain.CodeIssuer = DemoIssuer{}
	_ domain.CodeIssuer = (*RandomIssuer)(nil)
)
