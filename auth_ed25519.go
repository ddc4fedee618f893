package mysql

import (
	"crypto/sha512"

	"filippo.io/edwards25519"
)

// scrambleEd25519Password implements MySQL's client_ed25519 plugin: a
// Schnorr-style proof that the client knows a password hashed into a
// scalar, without ever sending a ciphertext the server could replay.
// This plugin is grounded on filippo.io/edwards25519 (an edwards25519
// dependency pulled in otherwise only for scalar/point arithmetic) and
// on the well-documented MariaDB/MySQL ed25519 authentication algorithm
// it exists to serve.
func scrambleEd25519Password(seed, password []byte) ([]byte, error) {
	h := sha512.Sum512(password)

	scalar, err := edwards25519.NewScalar().SetBytesWithClamping(h[:32])
	if err != nil {
		return nil, err
	}

	pubPoint := new(edwards25519.Point).ScalarBaseMult(scalar)
	pub := pubPoint.Bytes()

	rHash := sha512.New()
	rHash.Write(h[32:])
	rHash.Write(seed)
	rDigest := rHash.Sum(nil)

	rScalar, err := edwards25519.NewScalar().SetUniformBytes(rDigest)
	if err != nil {
		return nil, err
	}
	rPoint := new(edwards25519.Point).ScalarBaseMult(rScalar)
	rBytes := rPoint.Bytes()

	kHash := sha512.New()
	kHash.Write(rBytes)
	kHash.Write(pub)
	kHash.Write(seed)
	kDigest := kHash.Sum(nil)

	kScalar, err := edwards25519.NewScalar().SetUniformBytes(kDigest)
	if err != nil {
		return nil, err
	}

	sScalar := edwards25519.NewScalar().MultiplyAdd(kScalar, scalar, rScalar)

	sig := make([]byte, 64)
	copy(sig[:32], rBytes)
	copy(sig[32:], sScalar.Bytes())
	return sig, nil
}
