package certsource

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// K8sSecretSource loads control channel TLS material from a
// Kubernetes Secret of type kubernetes.io/tls, keyed by the standard
// tls.crt/tls.key fields plus a ca.crt entry for the client-CA bundle.
// It retries transient API-server errors with exponential backoff,
// the same policy the publishing-target discovery client used for
// Secret reads.
type K8sSecretSource struct {
	Namespace    string
	SecretName   string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *slog.Logger

	clientset kubernetes.Interface
}

// NewK8sSecretSource builds a source against the in-cluster API
// server config. Returns an error if the daemon is not running
// in-cluster or the API server is unreachable.
func NewK8sSecretSource(namespace, secretName string, logger *slog.Logger) (*K8sSecretSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	restCfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("certsource: load in-cluster config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("certsource: build clientset: %w", err)
	}
	return &K8sSecretSource{
		Namespace:    namespace,
		SecretName:   secretName,
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 200 * time.Millisecond,
		Logger:       logger,
		clientset:    clientset,
	}, nil
}

func (s *K8sSecretSource) Load() (*Material, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	secret, err := s.getSecretWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	certPEM, key, ca := secret.Data["tls.crt"], secret.Data["tls.key"], secret.Data["ca.crt"]
	if len(certPEM) == 0 || len(key) == 0 {
		return nil, fmt.Errorf("certsource: secret %s/%s missing tls.crt/tls.key", s.Namespace, s.SecretName)
	}
	if len(ca) == 0 {
		return nil, fmt.Errorf("certsource: secret %s/%s missing ca.crt", s.Namespace, s.SecretName)
	}

	cert, err := tls.X509KeyPair(certPEM, key)
	if err != nil {
		return nil, fmt.Errorf("certsource: parse key pair from secret: %w", err)
	}
	pool, err := buildCertPool(ca)
	if err != nil {
		return nil, err
	}
	return &Material{Cert: cert, CAs: pool}, nil
}

func (s *K8sSecretSource) getSecretWithRetry(ctx context.Context) (*corev1.Secret, error) {
	backoff := s.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		secret, err := s.clientset.CoreV1().Secrets(s.Namespace).Get(ctx, s.SecretName, metav1.GetOptions{})
		if err == nil {
			return secret, nil
		}
		lastErr = err
		if apierrors.IsNotFound(err) || apierrors.IsUnauthorized(err) || apierrors.IsForbidden(err) {
			return nil, fmt.Errorf("certsource: get secret %s/%s: %w", s.Namespace, s.SecretName, err)
		}
		if attempt == s.MaxRetries {
			break
		}
		s.Logger.Warn("retrying secret fetch", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("certsource: get secret %s/%s after %d retries: %w", s.Namespace, s.SecretName, s.MaxRetries, lastErr)
}
