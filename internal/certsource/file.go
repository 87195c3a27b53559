package certsource

import (
	"crypto/tls"
	"fmt"
	"os"
)

// FileSource loads the control channel's certificate, key, and CA
// bundle from the local filesystem — the common deployment.
type FileSource struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

// NewFileSource returns a Source reading PEM material from disk.
func NewFileSource(certFile, keyFile, caFile string) *FileSource {
	return &FileSource{CertFile: certFile, KeyFile: keyFile, CAFile: caFile}
}

func (s *FileSource) Load() (*Material, error) {
	cert, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("certsource: load key pair: %w", err)
	}
	caPEM, err := os.ReadFile(s.CAFile)
	if err != nil {
		return nil, fmt.Errorf("certsource: read CA file %s: %w", s.CAFile, err)
	}
	pool, err := buildCertPool(caPEM)
	if err != nil {
		return nil, err
	}
	return &Material{Cert: cert, CAs: pool}, nil
}
