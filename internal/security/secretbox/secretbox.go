// Package secretbox cifra secretos de configuración (shared secret del
// control plane, password SMTP) con una clave maestra de 32 bytes tomada de
// SECRETBOX_MASTER_KEY. Formato en reposo: base64(nonce)|base64(ciphertext),
// NaCl secretbox (XSalsa20-Poly1305).
package secretbox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	secretBoxEnvVar   = "SECRETBOX_MASTER_KEY"
	nonceSize         = 24  // nonce de NaCl secretbox
	requiredKeyLength = 32  // clave XSalsa20
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

var (
	masterKey     *[requiredKeyLength]byte
	masterKeyOnce sync.Once
	loadErr       error
	mu            sync.RWMutex
)

// ensureLoaded carga la clave maestra desde SECRETBOX_MASTER_KEY (base64) una sola vez.
func ensureLoaded() error {
	masterKeyOnce.Do(func() {
		kb64 := strings.TrimSpace(os.Getenv(secretBoxEnvVar))
		if kb64 == "" {
			loadErr = fmt.Errorf("%s no seteada; genere una clave con: openssl rand -base64 32", secretBoxEnvVar)
			return
		}
		k, err := base64.StdEncoding.DecodeString(kb64)
		if err != nil {
			loadErr = fmt.Errorf("decode %s: %w", secretBoxEnvVar, err)
			return
		}
		if len(k) != requiredKeyLength {
			loadErr = fmt.Errorf("%s debe decodificar a %d bytes, obtuvo %d", secretBoxEnvVar, requiredKeyLength, len(k))
			return
		}
		mu.Lock()
		masterKey = new([requiredKeyLength]byte)
		copy(masterKey[:], k)
		mu.Unlock()
	})
	return loadErr
}

// IsReady expone si la clave está cargada (útil para el print de config).
func IsReady() bool {
	mu.RLock()
	defer mu.RUnlock()
	return masterKey != nil
}

func currentKey() (*[requiredKeyLength]byte, error) {
	if err := ensureLoaded(); err != nil {
		return nil, err
	}
	mu.RLock()
	defer mu.RUnlock()
	k := *masterKey
	return &k, nil
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func Encrypt(plainText string) (string, error) {
	key, err := currentKey()
	if err != nil {
		return "", err
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := secretbox.Seal(nil, []byte(plainText), &nonce, key)
	return base64.StdEncoding.EncodeToString(nonce[:]) + sep +
		base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
func Decrypt(cipherText string) (string, error) {
	key, err := currentKey()
	if err != nil {
		return "", err
	}
	return open(key, cipherText)
}

// DecryptWithKey descifra con una clave explícita (base64, hex o raw 32 bytes).
func DecryptWithKey(key string, cipherText string) (string, error) {
	kBytes, err := parseKey(key)
	if err != nil {
		return "", err
	}
	return open(kBytes, cipherText)
}

// parseKey acepta base64 (std o raw), hex de 64 chars, o 32 bytes crudos.
func parseKey(key string) (*[requiredKeyLength]byte, error) {
	key = strings.TrimSpace(key)
	var kBytes []byte

	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		kBytes = b
	} else if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		kBytes = b
	} else if len(key) == 64 {
		if h, err := hex.DecodeString(key); err == nil {
			kBytes = h
		}
	}
	if kBytes == nil {
		kBytes = []byte(key)
	}
	if len(kBytes) != requiredKeyLength {
		return nil, fmt.Errorf("clave inválida: %d bytes (requiere %d)", len(kBytes), requiredKeyLength)
	}
	var out [requiredKeyLength]byte
	copy(out[:], kBytes)
	return &out, nil
}

func open(key *[requiredKeyLength]byte, cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", errors.New("formato inválido: esperado base64(nonce)|base64(ciphertext)")
	}
	nb, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nb) != nonceSize {
		return "", fmt.Errorf("nonce inválido: esperado %d bytes, obtuvo %d", nonceSize, len(nb))
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], nb)

	pt, ok := secretbox.Open(nil, ct, &nonce, key)
	if !ok {
		return "", errors.New("secretbox auth/decrypt failed")
	}
	return string(pt), nil
}

// --- Helpers para tests ---

// UnsafeResetForTests borra estado interno. Usar sólo en tests.
func UnsafeResetForTests() {
	mu.Lock()
	masterKey = nil
	mu.Unlock()
	masterKeyOnce = sync.Once{}
	loadErr = nil
}
