package transport

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"
	"strings"

	"scheduled-mailer/internal/pkg/errs"

	"github.com/emersion/go-msgauth/dkim"
)

var signedHeaders = []string{"from", "to", "subject", "date", "mime-version", "content-type", "message-id"}

// DKIMSigner signs outgoing SMTP messages. A nil signer leaves messages
// untouched.
type DKIMSigner struct {
	domain   string
	selector string
	key      crypto.Signer
}

// LoadDKIMSigner returns nil, nil when no selector and key are configured.
func LoadDKIMSigner(domain, selector, keyPath string) (*DKIMSigner, error) {
	domain, selector, keyPath = strings.TrimSpace(domain), strings.TrimSpace(selector), strings.TrimSpace(keyPath)
	if selector == "" && keyPath == "" {
		return nil, nil
	}
	if selector == "" || keyPath == "" || domain == "" {
		return nil, errs.New("dkim: DKIM_DOMAIN, DKIM_SELECTOR and DKIM_KEY_PATH must be set together")
	}

	pemData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, errs.Wrap(err, "dkim: read private key")
	}
	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, errs.Wrap(err, "dkim: parse private key")
	}
	return &DKIMSigner{domain: domain, selector: selector, key: key}, nil
}

func (s *DKIMSigner) Sign(message []byte) ([]byte, error) {
	if s == nil {
		return message, nil
	}

	var signed bytes.Buffer
	err := dkim.Sign(&signed, bytes.NewReader(message), &dkim.SignOptions{
		Domain:                 s.domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: dkim.CanonicalizationRelaxed,
		BodyCanonicalization:   dkim.CanonicalizationRelaxed,
		HeaderKeys:             signedHeaders,
	})
	if err != nil {
		return nil, errs.Wrap(err, "dkim: sign")
	}
	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			return nil, errs.New("no private key found in PEM data")
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}
			return nil, errs.New("unsupported private key type in PKCS#8 container")
		}
		pemData = rest
	}
}
