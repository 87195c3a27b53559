// Package certsource loads the TLS material for the control channel:
// the server certificate/key pair and the CA bundle trusted for client
// certificate verification. Two sources are supported: the local
// filesystem (the common case) and a Kubernetes Secret (for daemons
// running in-cluster where certs are rotated by cert-manager or a
// sidecar and mounted as a Secret object rather than files).
package certsource

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// Material is the TLS material needed to build a server-side
// tls.Config for the control channel: a certificate chain plus key,
// and a CA pool used both to verify client certificates and (for
// symmetry with the source) as the trust root for the control tool.
type Material struct {
	Cert tls.Certificate
	CAs  *x509.CertPool
}

// Source produces control-channel TLS material. Implementations must
// be safe to call repeatedly. The daemon loads it once, when it builds
// the control listener at start-up; fast_reload does not re-read it,
// so rotated material takes effect on the next daemon start.
type Source interface {
	Load() (*Material, error)
}

// ServerTLSConfig builds the tls.Config used by the control listener
// from the given source, per spec.md §6: TLSv1.2+, client certificate
// required and verified against the same CA bundle.
func ServerTLSConfig(src Source) (*tls.Config, error) {
	mat, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("certsource: load material: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{mat.Cert},
		ClientCAs:    mat.CAs,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func buildCertPool(caPEM []byte) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("certsource: no certificates found in CA bundle")
	}
	return pool, nil
}
