package mitm

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"
)

// LeafCache mints per-authority leaf certificates signed by CA, caching
// them so repeated connections to the same host reuse one certificate.
// Mirrors the CertCache shape referenced (but not itself vendored) by the
// HakAl/langley reference proxy, built directly on crypto/tls+x509 as both
// reference MITM examples in the corpus do.
type LeafCache struct {
	ca *CA

	mu    sync.Mutex
	certs map[string]*tls.Certificate
}

// NewLeafCache builds a leaf-certificate cache rooted at ca.
func NewLeafCache(ca *CA) *LeafCache {
	return &LeafCache{ca: ca, certs: make(map[string]*tls.Certificate)}
}

// GetCertificate implements tls.Config.GetCertificate, minting (or
// returning a cached) leaf certificate for the SNI host on hello.
func (c *LeafCache) GetCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	host := hello.ServerName
	if host == "" {
		host = "localhost"
	}
	return c.leafFor(host)
}

func (c *LeafCache) leafFor(host string) (*tls.Certificate, error) {
	c.mu.Lock()
	if cert, ok := c.certs[host]; ok {
		c.mu.Unlock()
		return cert, nil
	}
	c.mu.Unlock()

	cert, err := c.mintLeaf(host)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.certs[host] = cert
	c.mu.Unlock()
	return cert, nil
}

func (c *LeafCache) mintLeaf(host string) (*tls.Certificate, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generate leaf key for %s: %w", host, err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, fmt.Errorf("generate leaf serial for %s: %w", host, err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"playback-proxy"},
			CommonName:   host,
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(90 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	if ip := net.ParseIP(host); ip != nil {
		tmpl.IPAddresses = []net.IP{ip}
	} else {
		tmpl.DNSNames = []string{host}
		if !strings.Contains(host, ".") {
			tmpl.DNSNames = append(tmpl.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, c.ca.Cert, &priv.PublicKey, c.ca.Key)
	if err != nil {
		return nil, fmt.Errorf("create leaf certificate for %s: %w", host, err)
	}

	cert := &tls.Certificate{
		Certificate: [][]byte{der, c.ca.Cert.Raw},
		PrivateKey:  priv,
	}
	return cert, nil
}
