package httpclient

import (
	"crypto/tls"
	"crypto/x509"
)

// TaskID identifies one transport task.
type TaskID string

// Completion receives a task's outcome exactly once: either a body and
// response, or an error.
type Completion func(body []byte, resp *WireResponse, err error)

// Task is a unit of transport work. Resume starts it; Cancel aborts it.
type Task interface {
	ID() TaskID
	Resume()
	Cancel()
}

// Transport performs network I/O on behalf of the client.
type Transport interface {
	// Bind installs the delegate that receives progress and challenges.
	Bind(d Delegate)
	// DataTask creates a task that sends req with its own body.
	DataTask(req *WireRequest, done Completion) Task
	// UploadTask creates a task that sends payload as the request body.
	UploadTask(req *WireRequest, payload []byte, done Completion) Task
}

// Delegate receives transport callbacks. Calls may arrive on any goroutine.
type Delegate interface {
	DidSendBodyData(id TaskID, bytesSent, totalBytesSent, totalExpected int64)
	HandleChallenge(ch Challenge) (Disposition, *Credential)
}

// ChallengeType distinguishes authentication challenges.
type ChallengeType int

const (
	// ChallengeServerTrust asks whether the server's chain is trusted.
	ChallengeServerTrust ChallengeType = iota
	// ChallengeClientCertificate asks for a client identity.
	ChallengeClientCertificate
	// ChallengeOther covers every other scheme.
	ChallengeOther
)

func (t ChallengeType) String() string {
	switch t {
	case ChallengeServerTrust:
		return "server_trust"
	case ChallengeClientCertificate:
		return "client_certificate"
	default:
		return "other"
	}
}

// Challenge is raised by the transport while establishing a connection.
type Challenge struct {
	Type ChallengeType
	// Host is the server name being verified.
	Host string
	// Chain is the server's presented chain, leaf first (server trust only).
	Chain []*x509.Certificate
	// Scheme names the authentication scheme of a ChallengeOther.
	Scheme string
}

// Disposition is the answer to a challenge.
type Disposition int

const (
	// UseCredential proceeds with the returned credential.
	UseCredential Disposition = iota
	// PerformDefaultHandling lets the platform decide.
	PerformDefaultHandling
	// CancelChallenge aborts the connection.
	CancelChallenge
	// RejectProtectionSpace declines this scheme.
	RejectProtectionSpace
)

func (d Disposition) String() string {
	switch d {
	case UseCredential:
		return "use_credential"
	case PerformDefaultHandling:
		return "default_handling"
	case CancelChallenge:
		return "cancel"
	default:
		return "reject_protection_space"
	}
}

// Credential answers a challenge with UseCredential.
type Credential struct {
	// Certificate is the client identity (client-certificate challenges).
	Certificate *tls.Certificate
	// VerifiedChains are the chains built to the pinned anchor
	// (server-trust challenges).
	VerifiedChains [][]*x509.Certificate
}
