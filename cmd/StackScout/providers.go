package main

import (
	"StackScout/internal/conf"
	"StackScout/pkg/crypto"
)

// newCryptoService creates AES crypto service from config.
// Without a key sealed values fail to reveal with crypto.ErrNoKey.
func newCryptoService(auth *conf.Auth) (*crypto.AESCrypto, error) {
	if auth == nil || auth.Encryption == nil || auth.Encryption.Key == "" {
		return nil, nil
	}
	return crypto.NewAESCrypto([]byte(auth.Encryption.Key))
}
