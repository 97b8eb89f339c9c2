// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func GeneratePaymentReference() (string, error) {
	prefix := "dep_"
	randomPart, err := GenerateRandomString(24)
	if err != nil {
		return "", err
	}
	return prefix + randomPart, nil
}

func HashFileContent(fileData []byte) string {
	hasher := sha256.New()
	hasher.Write(fileData)
	return hex.EncodeToString(hasher.Sum(nil))
}
