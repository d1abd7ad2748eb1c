package envelope

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fsp-loan-gateway/internal/domain/catalog"
	"github.com/fsp-loan-gateway/internal/domain/shared"
)

const (
	dataElement      = "Data"
	signatureElement = "Signature"
)

// Parts is a signed envelope split into the raw <Data> element and the
// text of its sibling <Signature>.
type Parts struct {
	Data      []byte
	Signature string
}

// Split extracts the Data element bytes exactly as received and the
// Signature text from the children of the document root.
func Split(doc []byte) (Parts, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var (
		parts        Parts
		hasData      bool
		hasSignature bool
		sawRoot      bool
		depth        int
	)

	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Parts{}, shared.MalformedPayload(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				sawRoot = true
				depth++
				continue
			}
			switch t.Name.Local {
			case dataElement:
				if err := dec.Skip(); err != nil {
					return Parts{}, shared.MalformedPayload(err)
				}
				parts.Data = doc[offset:dec.InputOffset()]
				hasData = true
			case signatureElement:
				var sig string
				if err := dec.DecodeElement(&sig, &t); err != nil {
					return Parts{}, shared.MalformedPayload(err)
				}
				parts.Signature = strings.TrimSpace(sig)
				hasSignature = true
			default:
				if err := dec.Skip(); err != nil {
					return Parts{}, shared.MalformedPayload(err)
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return Parts{}, shared.MalformedPayload(errors.New("document has no root element"))
	}
	if depth != 0 {
		return Parts{}, shared.MalformedPayload(errors.New("unexpected end of document"))
	}
	if !hasData {
		return Parts{}, shared.MissingSignaturePart(dataElement)
	}
	if !hasSignature {
		return Parts{}, shared.MissingSignaturePart(signatureElement)
	}
	return parts, nil
}

// Verifier checks the signature of a Data element on behalf of an FSP
type Verifier interface {
	Verify(ctx context.Context, data []byte, signature, fspCode string) error
}

// KeyResolver returns the PEM public credential registered for an FSP
type KeyResolver interface {
	PublicKey(ctx context.Context, fspCode string) (string, error)
}

// FSPKeys resolves keys from the provider registry
type FSPKeys struct {
	FSPs catalog.FSPRepository
}

func (k FSPKeys) PublicKey(ctx context.Context, fspCode string) (string, error) {
	fsp, err := k.FSPs.GetByCode(ctx, fspCode)
	if err != nil {
		return "", err
	}
	return fsp.PublicKey, nil
}

// RSAVerifier verifies base64 RSA PKCS#1 v1.5 SHA-256 signatures
type RSAVerifier struct {
	keys   KeyResolver
	logger *slog.Logger
}

func NewRSAVerifier(logger *slog.Logger, keys KeyResolver) *RSAVerifier {
	return &RSAVerifier{keys: keys, logger: logger}
}

func (v *RSAVerifier) Verify(ctx context.Context, data []byte, signature, fspCode string) error {
	keyPEM, err := v.keys.PublicKey(ctx, fspCode)
	if err != nil {
		var notFound catalog.ErrFSPNotFound
		if errors.As(err, &notFound) {
			return shared.InvalidSignature(fspCode, err)
		}
		return shared.StoreFailure("resolving FSP public key", err)
	}
	if strings.TrimSpace(keyPEM) == "" {
		return shared.InvalidSignature(fspCode, errors.New("no public key registered"))
	}

	pub, err := ParsePublicKey([]byte(keyPEM))
	if err != nil {
		v.logger.Warn("Registered FSP public key is unusable", "fsp_code", fspCode, "error", err)
		return shared.InvalidSignature(fspCode, err)
	}

	sig, err := base64.StdEncoding.DecodeString(stripWhitespace(signature))
	if err != nil {
		return shared.InvalidSignature(fspCode, fmt.Errorf("signature is not base64: %w", err))
	}

	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return shared.InvalidSignature(fspCode, nil)
	}
	return nil
}

// ParsePublicKey accepts a PKIX public key, a PKCS#1 public key or a certificate
func ParsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	var key interface{}
	var err error
	switch block.Type {
	case "CERTIFICATE":
		var cert *x509.Certificate
		cert, err = x509.ParseCertificate(block.Bytes)
		if err == nil {
			key = cert.PublicKey
		}
	case "RSA PUBLIC KEY":
		key, err = x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		key, err = x509.ParsePKIXPublicKey(block.Bytes)
	}
	if err != nil {
		return nil, err
	}

	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unsupported public key type %T", key)
	}
	return pub, nil
}

// Signer signs outbound Data elements with the gateway's private key
type Signer struct {
	key *rsa.PrivateKey
}

func NewSigner(key *rsa.PrivateKey) *Signer {
	return &Signer{key: key}
}

// LoadSigner reads a PKCS#1 or PKCS#8 RSA private key from a PEM file
func LoadSigner(path string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("signing key %s: no PEM block found", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return NewSigner(key), nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("signing key %s is %T, expected RSA", path, parsed)
	}
	return NewSigner(key), nil
}

func (s *Signer) Sign(data []byte) (string, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
