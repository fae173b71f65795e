package digest

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/youmark/pkcs8"

	domainErrors "github.com/polkiloo/artshop/internal/domain/errors"
)

// PrivateKeySource provides the merchant signing key.
type PrivateKeySource interface {
	PrivateKey() (*rsa.PrivateKey, error)
}

// PublicKeySource provides the gateway verification key.
type PublicKeySource interface {
	PublicKey() (*rsa.PublicKey, error)
}

// PrivateKeyFunc adapts a function to PrivateKeySource.
type PrivateKeyFunc func() (*rsa.PrivateKey, error)

func (f PrivateKeyFunc) PrivateKey() (*rsa.PrivateKey, error) { return f() }

// PublicKeyFunc adapts a function to PublicKeySource.
type PublicKeyFunc func() (*rsa.PublicKey, error)

func (f PublicKeyFunc) PublicKey() (*rsa.PublicKey, error) { return f() }

type fileStamp struct {
	size    int64
	modTime time.Time
}

func stampOf(path string) (fileStamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{size: info.Size(), modTime: info.ModTime()}, nil
}

// FilePrivateKeySource loads a PEM private key from disk. The parsed key is
// shared until the file changes.
type FilePrivateKeySource struct {
	path     string
	password string

	mu    sync.Mutex
	key   *rsa.PrivateKey
	stamp fileStamp
}

// NewFilePrivateKeySource constructs FilePrivateKeySource. password is used
// only for ENCRYPTED PRIVATE KEY blocks.
func NewFilePrivateKeySource(path, password string) *FilePrivateKeySource {
	return &FilePrivateKeySource{path: path, password: password}
}

// PrivateKey returns the current key, reloading it after rotation.
func (s *FilePrivateKeySource) PrivateKey() (*rsa.PrivateKey, error) {
	stamp, err := stampOf(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat private key: %v", domainErrors.ErrKeyLoad, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && s.stamp == stamp {
		return s.key, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read private key: %v", domainErrors.ErrKeyLoad, err)
	}
	key, err := ParsePrivateKey(data, s.password)
	if err != nil {
		return nil, err
	}
	s.key, s.stamp = key, stamp
	return key, nil
}

// FilePublicKeySource loads a PEM public key or certificate from disk.
type FilePublicKeySource struct {
	path string

	mu    sync.Mutex
	key   *rsa.PublicKey
	stamp fileStamp
}

// NewFilePublicKeySource constructs FilePublicKeySource.
func NewFilePublicKeySource(path string) *FilePublicKeySource {
	return &FilePublicKeySource{path: path}
}

// PublicKey returns the current key, reloading it after rotation.
func (s *FilePublicKeySource) PublicKey() (*rsa.PublicKey, error) {
	stamp, err := stampOf(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat public key: %v", domainErrors.ErrKeyLoad, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil && s.stamp == stamp {
		return s.key, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read public key: %v", domainErrors.ErrKeyLoad, err)
	}
	key, err := ParsePublicKey(data)
	if err != nil {
		return nil, err
	}
	s.key, s.stamp = key, stamp
	return key, nil
}

// ParsePrivateKey decodes an RSA private key from PEM. PKCS#1, PKCS#8 and
// password protected PKCS#8 are accepted.
func ParsePrivateKey(data []byte, password string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", domainErrors.ErrKeyLoad)
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrKeyLoad, err)
		}
		return key, nil
	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrKeyLoad, err)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is %T, want RSA", domainErrors.ErrKeyLoad, parsed)
		}
		return key, nil
	case "ENCRYPTED PRIVATE KEY":
		if password == "" {
			return nil, fmt.Errorf("%w: encrypted private key requires a password", domainErrors.ErrKeyLoad)
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domainErrors.ErrKeyLoad, err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block %q", domainErrors.ErrKeyLoad, block.Type)
	}
}

// ParsePublicKey decodes an RSA public key from a PUBLIC KEY, RSA PUBLIC KEY
// or CERTIFICATE PEM block.
func ParsePublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", domainErrors.ErrKeyLoad)
	}

	var parsed any
	var err error
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err = x509.ParsePKIXPublicKey(block.Bytes)
	case "RSA PUBLIC KEY":
		parsed, err = x509.ParsePKCS1PublicKey(block.Bytes)
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			parsed = cert.PublicKey
		}
	default:
		err = fmt.Errorf("unsupported PEM block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrKeyLoad, err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, want RSA", domainErrors.ErrKeyLoad, parsed)
	}
	return key, nil
}

func keyLoadError(err error) error {
	if errors.Is(err, domainErrors.ErrKeyLoad) {
		return err
	}
	return fmt.Errorf("%w: %v", domainErrors.ErrKeyLoad, err)
}
