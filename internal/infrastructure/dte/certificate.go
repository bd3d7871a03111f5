package dte

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// Certificate certificado del emisor cargado desde .p12.
type Certificate struct {
	Leaf *x509.Certificate
	// Key clave derivada que viaja en X-Certificate-Key.
	Key string
}

// Expired indica si el certificado venció en el instante dado.
func (c *Certificate) Expired(at time.Time) bool {
	return c.Leaf == nil || at.After(c.Leaf.NotAfter)
}

// LoadFromP12 carga el certificado del emisor desde un archivo .p12/.pfx.
func LoadFromP12(path, password string) (*Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("leer p12: %w", err)
	}
	return ParseP12(data, password)
}

// ParseP12 decodifica un PKCS#12 con un único certificado y su llave.
func ParseP12(data []byte, password string) (*Certificate, error) {
	_, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return nil, fmt.Errorf("decodificar p12: %w", err)
	}
	return &Certificate{Leaf: cert, Key: CertificateKey(cert)}, nil
}

// CertificateKey huella SHA-256 (hex, mayúsculas) del certificado hoja.
func CertificateKey(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	sum := sha256.Sum256(cert.Raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
