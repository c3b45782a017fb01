package goAlert

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAlert/internal"
	"github.com/MrEthical07/goAlert/phi"
)

// StartPHISession opens a key session under a fresh random id and returns it.
func (e *Engine) StartPHISession(ctx context.Context, userID string, key phi.Secret) (string, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return "", fmt.Errorf("phi session id: %w", err)
	}
	id := sid.String()
	if err := e.OpenPHISession(ctx, userID, id, key); err != nil {
		return "", err
	}
	return id, nil
}

// OpenPHISession installs key as the PHI key of sessionID, replacing any
// previous key for it. The key expires after PHI.SessionTimeout without use.
func (e *Engine) OpenPHISession(ctx context.Context, userID, sessionID string, key phi.Secret) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if sessionID == "" || len(key) == 0 {
		return ErrValidation
	}
	e.phiSessions.Open(sessionID, key)
	e.metricInc(MetricPHISessionOpened)
	e.emitAudit(ctx, auditEventPHISession, "open", OutcomeSuccess, RiskLow, userID, nil, nil)
	return nil
}

// ClosePHISession zeroes the PHI key of sessionID.
func (e *Engine) ClosePHISession(ctx context.Context, userID, sessionID string) {
	if e == nil {
		return
	}
	e.phiSessions.Close(sessionID)
	e.metricInc(MetricPHISessionClosed)
	e.emitAudit(ctx, auditEventPHISession, "close", OutcomeSuccess, RiskLow, userID, nil, nil)
}

// EncryptPHI seals plaintext with the key of sessionID.
func (e *Engine) EncryptPHI(ctx context.Context, sessionID, plaintext string) (string, error) {
	s, err := e.phiSession(sessionID)
	if err != nil {
		return "", err
	}
	out, err := s.Encrypt(plaintext)
	if err != nil {
		return "", e.cryptoFailure(ctx, sessionID, err)
	}
	return out, nil
}

// DecryptPHI opens a value sealed by EncryptPHI. Wrong keys and tampered
// input fail with an error wrapping ErrCrypto; no partial plaintext is returned.
func (e *Engine) DecryptPHI(ctx context.Context, sessionID, sealed string) (string, error) {
	s, err := e.phiSession(sessionID)
	if err != nil {
		return "", err
	}
	out, err := s.Decrypt(sealed)
	if err != nil {
		return "", e.cryptoFailure(ctx, sessionID, err)
	}
	return out, nil
}

// EncryptRecord applies the sensitive-field policy to record.
func (e *Engine) EncryptRecord(ctx context.Context, sessionID string, record map[string]any) (map[string]any, error) {
	s, err := e.phiSession(sessionID)
	if err != nil {
		return nil, err
	}
	out, err := s.EncryptFields(record)
	if err != nil {
		return nil, e.cryptoFailure(ctx, sessionID, err)
	}
	return out, nil
}

// DecryptRecord reverses EncryptRecord. Fields that fail to decrypt are
// removed from the result and listed as unavailable.
func (e *Engine) DecryptRecord(ctx context.Context, sessionID string, record map[string]any) (map[string]any, []string, error) {
	s, err := e.phiSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	out, unavailable, err := s.DecryptFields(record)
	if err != nil {
		return nil, nil, e.cryptoFailure(ctx, sessionID, err)
	}
	if len(unavailable) > 0 {
		e.metricInc(MetricCryptoFailure)
	}
	return out, unavailable, nil
}

func (e *Engine) phiSession(sessionID string) (*phi.Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	s, err := e.phiSessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPHISessionRequired, err)
	}
	return s, nil
}

func (e *Engine) cryptoFailure(ctx context.Context, sessionID string, err error) error {
	e.metricInc(MetricCryptoFailure)
	if errors.Is(err, phi.ErrKeyExpired) {
		return fmt.Errorf("%w: %w", ErrPHISessionRequired, err)
	}
	if errors.Is(err, phi.ErrDecryption) {
		e.ReportSecurityEvent(ctx, SecurityEvent{
			Type:     securityEventDecryptionFailure,
			Severity: RiskMedium,
			Details:  map[string]string{"operation": "decrypt"},
		})
	}
	return err
}
