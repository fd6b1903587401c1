package download

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // maintained fork
)

// Verifier checks downloaded payloads against checksum files and detached
// GPG signatures. Verification is best-effort per target: a target whose
// releases publish no sidecars is installed unverified.
type Verifier struct {
	keyringDir string
}

// NewVerifier creates a verifier loading keyrings from keyringDir. Keyring
// files are named <target>.asc (armored) or <target>.gpg.
func NewVerifier(keyringDir string) *Verifier {
	return &Verifier{keyringDir: keyringDir}
}

// VerifyChecksum checks that payloadPath's SHA-256 digest matches the entry
// for its basename in checksumPath.
func (v *Verifier) VerifyChecksum(payloadPath, checksumPath string) error {
	actual, err := SHA256File(payloadPath)
	if err != nil {
		return fmt.Errorf("hash payload: %w", err)
	}

	expected, err := findChecksum(checksumPath, filepath.Base(payloadPath))
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksumMismatch, actual, expected)
	}
	return nil
}

// VerifySignature checks the detached GPG signature at signaturePath
// against payloadPath using the target's keyring.
func (v *Verifier) VerifySignature(payloadPath, signaturePath, target string) error {
	keyring, err := v.loadKeyring(target)
	if err != nil {
		return fmt.Errorf("load keyring for %s: %w", target, err)
	}

	payload, err := os.Open(payloadPath)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}
	defer payload.Close()

	sig, err := os.Open(signaturePath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, payload, sig, nil)
	if err != nil {
		payload.Seek(0, io.SeekStart)
		sig.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, payload, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("signature verification failed for %s: %w", target, err)
	}
	return nil
}

func (v *Verifier) loadKeyring(target string) (openpgp.EntityList, error) {
	var lastErr error
	for _, name := range []string{target + ".asc", target + ".gpg"} {
		f, err := os.Open(filepath.Join(v.keyringDir, name))
		if err != nil {
			lastErr = err
			continue
		}
		defer f.Close()

		keyring, err := openpgp.ReadArmoredKeyRing(f)
		if err != nil {
			f.Seek(0, io.SeekStart)
			keyring, err = openpgp.ReadKeyRing(f)
		}
		if err != nil {
			return nil, fmt.Errorf("read keyring %s: %w", name, err)
		}
		if len(keyring) == 0 {
			return nil, fmt.Errorf("keyring %s is empty", name)
		}
		return keyring, nil
	}
	return nil, fmt.Errorf("no keyring: %w", lastErr)
}

// SHA256File returns the lowercase hex SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// findChecksum scans a "<hex>  <filename>" checksum file for the given
// filename. Paths in the file are matched by basename too.
func findChecksum(checksumPath, filename string) (string, error) {
	f, err := os.Open(checksumPath)
	if err != nil {
		return "", fmt.Errorf("open checksum file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		name := strings.TrimPrefix(parts[1], "*")
		if name == filename || filepath.Base(name) == filename {
			return parts[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan checksum file: %w", err)
	}
	return "", fmt.Errorf("%w: no entry for %s", ErrChecksumMismatch, filename)
}

// HasKeyring reports whether a keyring exists for target.
func (v *Verifier) HasKeyring(target string) bool {
	for _, name := range []string{target + ".asc", target + ".gpg"} {
		if fi, err := os.Stat(filepath.Join(v.keyringDir, name)); err == nil && !fi.IsDir() {
			return true
		}
	}
	return false
}
