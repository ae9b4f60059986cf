package httpclient

import (
	"crypto/x509"
	"sync"
	"time"

	"github.com/kbukum/futurenet/logger"
	"github.com/kbukum/futurenet/security"
)

// TrustEvaluator answers connection challenges for mutual TLS: it pins the
// server to the configured certificate and presents the client identity
// from the configured PKCS#12 bundle.
type TrustEvaluator struct {
	cfg *security.MutualTLSConfig
	log *logger.Logger
	now func() time.Time

	mu       sync.Mutex
	identity *security.Identity
}

// NewTrustEvaluator creates an evaluator. A nil or disabled cfg hands every
// challenge back to the platform.
func NewTrustEvaluator(cfg *security.MutualTLSConfig, log *logger.Logger) *TrustEvaluator {
	if log == nil {
		log = logger.Nop()
	}
	return &TrustEvaluator{cfg: cfg, log: log, now: time.Now}
}

// HandleChallenge decides a challenge:
//   - no mutual TLS configured: default handling
//   - server trust: verify against the pinned certificate alone; on failure
//     fall back to default handling, or cancel when StrictServerTrust is set
//   - client certificate: present the bundle identity, or cancel if it
//     cannot be loaded
//   - anything else: reject the protection space
func (e *TrustEvaluator) HandleChallenge(ch Challenge) (Disposition, *Credential) {
	if !e.cfg.IsEnabled() {
		return PerformDefaultHandling, nil
	}

	switch ch.Type {
	case ChallengeServerTrust:
		return e.evaluateServerTrust(ch)
	case ChallengeClientCertificate:
		id, err := e.Identity()
		if err != nil {
			e.log.WithError(err).Error("client identity unavailable", logger.Fields(
				logger.FieldChallenge, ch.Type.String(),
				logger.FieldHost, ch.Host,
			))
			return CancelChallenge, nil
		}
		cert := id.TLSCertificate()
		return UseCredential, &Credential{Certificate: &cert}
	default:
		return RejectProtectionSpace, nil
	}
}

func (e *TrustEvaluator) evaluateServerTrust(ch Challenge) (Disposition, *Credential) {
	anchor, err := e.cfg.LoadAnchor()
	if err == nil {
		var chains [][]*x509.Certificate
		chains, err = security.VerifyPinned(anchor, ch.Chain, ch.Host, e.now())
		if err == nil {
			return UseCredential, &Credential{VerifiedChains: chains}
		}
	}

	log := e.log.WithError(err)
	fields := logger.Fields(
		logger.FieldChallenge, ch.Type.String(),
		logger.FieldHost, ch.Host,
	)
	if e.cfg.StrictServerTrust {
		log.Error("server trust rejected", fields)
		return CancelChallenge, nil
	}
	log.Warn("pinned server trust failed, falling back to default handling", fields)
	return PerformDefaultHandling, nil
}

// Identity returns the client identity, importing the bundle on first use.
// A successful import is kept for the life of the evaluator; failures are
// retried on the next challenge.
func (e *TrustEvaluator) Identity() (*security.Identity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.identity != nil {
		return e.identity, nil
	}
	id, err := e.cfg.LoadIdentity()
	if err != nil {
		return nil, NewTrustError(err)
	}
	e.identity = id
	return id, nil
}

// ExtractIdentity imports the single identity held in a PKCS#12 bundle. It
// fails with a trust error on a wrong password, an empty bundle, or an
// identity without a matching certificate.
func ExtractIdentity(data []byte, password string) (*security.Identity, error) {
	id, err := security.ImportPKCS12(data, password)
	if err != nil {
		return nil, NewTrustError(err)
	}
	return id, nil
}
