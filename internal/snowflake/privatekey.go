package snowflake

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	encasn1 "encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/ssh"

	"github.com/jar-ry/Snowflake-Data-Science/internal/common"
	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

var (
	oidPBES2  = encasn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPBKDF2 = encasn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}

	oidHMACWithSHA1   = encasn1.ObjectIdentifier{1, 2, 840, 113549, 2, 7}
	oidHMACWithSHA256 = encasn1.ObjectIdentifier{1, 2, 840, 113549, 2, 9}
	oidHMACWithSHA512 = encasn1.ObjectIdentifier{1, 2, 840, 113549, 2, 11}

	oidAES128CBC  = encasn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	oidAES192CBC  = encasn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	oidAES256CBC  = encasn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
	oidDESEDE3CBC = encasn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}
)

// loadPrivateKey reads an RSA key for key-pair auth: PKCS#8 or PKCS#1 PEM,
// encrypted PKCS#8 (PBES2) or a legacy encrypted PEM when a passphrase is set.
func loadPrivateKey(path, passphrase string) (*rsa.PrivateKey, error) {
	clean, err := common.CleanPath(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "Invalid private key path").
			WithContext("path", path)
	}

	data, err := os.ReadFile(clean) // #nosec G304 - path cleaned above
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFileNotFound, "Failed to read private key").
			WithContext("path", clean)
	}

	key, err := parsePrivateKey(data, []byte(passphrase))
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr.WithContext("path", clean)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to parse private key").
			WithContext("path", clean)
	}
	return key, nil
}

func parsePrivateKey(data, passphrase []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "Private key file is not PEM encoded")
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		if len(passphrase) == 0 {
			return nil, passphraseRequired()
		}
		der, err := decryptPKCS8(block.Bytes, passphrase)
		if err != nil {
			return nil, err
		}
		data = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
	}

	var raw interface{}
	var err error
	if len(passphrase) > 0 && block.Type != "ENCRYPTED PRIVATE KEY" && block.Headers["Proc-Type"] != "" {
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(data, passphrase)
	} else {
		raw, err = ssh.ParseRawPrivateKey(data)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, passphraseRequired()
		}
		// Decrypted bytes that do not parse mean the passphrase was wrong.
		if errors.Is(err, x509.IncorrectPasswordError) || block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, badPassphrase()
		}
		return nil, err
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "Private key is not an RSA key").
			WithContext("type", fmt.Sprintf("%T", raw))
	}
	return key, nil
}

func passphraseRequired() *errors.AppError {
	return errors.ConfigError("private key is encrypted", "private_key_file_pwd").
		WithSuggestions("Set private_key_file_pwd in connection.json or SNOWFLAKE_PRIVATE_KEY_FILE_PWD")
}

func badPassphrase() *errors.AppError {
	return errors.ConfigError("private key passphrase is incorrect", "private_key_file_pwd")
}

// decryptPKCS8 unwraps an EncryptedPrivateKeyInfo protected with PBES2
// (PBKDF2 and an AES or 3DES CBC cipher), returning the PrivateKeyInfo DER.
func decryptPKCS8(der, passphrase []byte) ([]byte, error) {
	malformed := errors.New(errors.ErrCodeConfigInvalid, "Encrypted private key is malformed")

	var (
		info, alg, params, kdf, kdfParams, scheme cryptobyte.String
		algOID, kdfOID, schemeOID                 encasn1.ObjectIdentifier
		encrypted, salt, iv                       []byte
		iterations                                int
	)

	input := cryptobyte.String(der)
	if !input.ReadASN1(&info, asn1.SEQUENCE) ||
		!info.ReadASN1(&alg, asn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&algOID) ||
		!info.ReadASN1Bytes(&encrypted, asn1.OCTET_STRING) {
		return nil, malformed
	}
	if !algOID.Equal(oidPBES2) {
		return nil, unsupportedEncryption(algOID)
	}

	if !alg.ReadASN1(&params, asn1.SEQUENCE) ||
		!params.ReadASN1(&kdf, asn1.SEQUENCE) ||
		!kdf.ReadASN1ObjectIdentifier(&kdfOID) ||
		!params.ReadASN1(&scheme, asn1.SEQUENCE) ||
		!scheme.ReadASN1ObjectIdentifier(&schemeOID) {
		return nil, malformed
	}
	if !kdfOID.Equal(oidPBKDF2) {
		return nil, unsupportedEncryption(kdfOID)
	}

	if !kdf.ReadASN1(&kdfParams, asn1.SEQUENCE) ||
		!kdfParams.ReadASN1Bytes(&salt, asn1.OCTET_STRING) ||
		!kdfParams.ReadASN1Integer(&iterations) {
		return nil, malformed
	}
	if kdfParams.PeekASN1Tag(asn1.INTEGER) {
		var keyLength int
		if !kdfParams.ReadASN1Integer(&keyLength) {
			return nil, malformed
		}
	}

	prf := sha1.New
	if kdfParams.PeekASN1Tag(asn1.SEQUENCE) {
		var prfAlg cryptobyte.String
		var prfOID encasn1.ObjectIdentifier
		if !kdfParams.ReadASN1(&prfAlg, asn1.SEQUENCE) || !prfAlg.ReadASN1ObjectIdentifier(&prfOID) {
			return nil, malformed
		}
		switch {
		case prfOID.Equal(oidHMACWithSHA1):
		case prfOID.Equal(oidHMACWithSHA256):
			prf = sha256.New
		case prfOID.Equal(oidHMACWithSHA512):
			prf = sha512.New
		default:
			return nil, unsupportedEncryption(prfOID)
		}
	}

	if !scheme.ReadASN1Bytes(&iv, asn1.OCTET_STRING) {
		return nil, malformed
	}

	newCipher, keyLen, err := blockCipher(schemeOID)
	if err != nil {
		return nil, err
	}
	return decryptCBC(newCipher, pbkdf2.Key(passphrase, salt, iterations, keyLen, prf), iv, encrypted)
}

func blockCipher(oid encasn1.ObjectIdentifier) (func([]byte) (cipher.Block, error), int, error) {
	switch {
	case oid.Equal(oidAES128CBC):
		return aes.NewCipher, 16, nil
	case oid.Equal(oidAES192CBC):
		return aes.NewCipher, 24, nil
	case oid.Equal(oidAES256CBC):
		return aes.NewCipher, 32, nil
	case oid.Equal(oidDESEDE3CBC):
		return des.NewTripleDESCipher, 24, nil
	}
	return nil, 0, unsupportedEncryption(oid)
}

func decryptCBC(newCipher func([]byte) (cipher.Block, error), key, iv, encrypted []byte) ([]byte, error) {
	block, err := newCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to initialise key cipher")
	}
	size := block.BlockSize()
	if len(iv) != size || len(encrypted) == 0 || len(encrypted)%size != 0 {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "Encrypted private key is malformed")
	}

	out := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, encrypted)

	// A wrong passphrase shows up as broken PKCS#7 padding.
	pad := int(out[len(out)-1])
	if pad == 0 || pad > size || !bytes.Equal(out[len(out)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return nil, badPassphrase()
	}
	return out[:len(out)-pad], nil
}

func unsupportedEncryption(oid encasn1.ObjectIdentifier) *errors.AppError {
	return errors.New(errors.ErrCodeConfigInvalid, "Unsupported private key encryption").
		WithContext("algorithm", oid.String()).
		WithSuggestions("Re-encrypt the key with: openssl pkcs8 -topk8 -v2 aes-256-cbc -in key.pem -out rsa_key.p8")
}
