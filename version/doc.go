// Package version reports the futurenet build version and the default
// User-Agent sent by the HTTP client.
//
// Release builds set the version through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/futurenet/version.Version=v1.2.0" ./cmd/futurenet
package version
