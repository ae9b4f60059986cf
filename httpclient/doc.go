// Package httpclient executes declaratively described HTTP endpoints.
//
// An Endpoint names a host, path, method, parameter placement and optional
// authentication. The Client builds it into a WireRequest, runs it as a
// Transport task, reports upload progress, and hands the response to a
// ResponseHandler that classifies the status and decodes the body.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{Name: "users-api"})
//
//	ep := httpclient.NewEndpoint[User]("https://api.example.com", "/users",
//	    httpclient.WithPlacement(httpclient.Query{"id": httpclient.Int(42)}),
//	    httpclient.WithAuthentication(httpclient.BasicAuth("alice", "secret")),
//	)
//	user, err := httpclient.Request(ctx, client, ep, nil)
//
// # Uploads
//
//	ep := httpclient.NewEndpoint[Receipt](host, "/files",
//	    httpclient.WithMethod(httpclient.MethodPost),
//	    httpclient.WithPlacement(httpclient.Upload(data)),
//	)
//	receipt, err := httpclient.Request(ctx, client, ep, func(p httpclient.Progress) {
//	    fmt.Printf("%.0f%%\n", p.Fraction()*100)
//	})
//
// # Mutual TLS
//
// Setting Config.MutualTLS presents the identity from a PKCS#12 bundle and
// pins the server to a single certificate. By default a server that fails
// the pinned check is verified against the system roots instead; set
// StrictServerTrust to refuse it.
//
// # Errors
//
// Every failure is an *Error whose Code is one of unknown, client, server,
// decoding, authentication, trust or canceled. Use IsClientError,
// IsServerError and the other helpers to branch on it.
package httpclient
