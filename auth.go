package mysql

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// genAuthResponse computes the authentication response bytes for the
// given plugin against the server's challenge (authData, usually an
// 8+12 byte scramble). Grounded on go-mysql-org/go-mysql's
// genAuthResponse, widened with the caching_sha2/sha256 full-auth paths
// from go-sql-driver/mysql's handleAuthResult-adjacent response builder.
func (mc *Connection) genAuthResponse(authData []byte, plugin string) ([]byte, error) {
	switch plugin {
	case authNativePassword:
		if !mc.cfg.HasPass {
			return nil, nil
		}
		return scrambleNativePassword(authData, []byte(mc.cfg.Password)), nil

	case authCachingSHA2:
		if !mc.cfg.HasPass {
			return nil, nil
		}
		return scrambleCachingSHA2Password(authData, []byte(mc.cfg.Password)), nil

	case authClearPassword:
		if !mc.cfg.AllowFallbackToPlaintext {
			return nil, errors.New("mysql: this server requires mysql_clear_password authentication, but AllowFallbackToPlaintext is not set")
		}
		return []byte(mc.cfg.Password), nil

	case authSHA256Password:
		if !mc.cfg.HasPass {
			return []byte{0}, nil
		}
		if mc.tlsActive() {
			return append([]byte(mc.cfg.Password), 0), nil
		}
		// defer to a public-key round trip
		return []byte{1}, nil

	case authOldPassword:
		if !mc.cfg.AllowOldPasswords {
			return nil, ErrOldProtocol
		}
		if !mc.cfg.HasPass {
			return nil, nil
		}
		return append(scrambleOldPassword(authData, []byte(mc.cfg.Password)), 0), nil

	case authEd25519Password:
		if !mc.cfg.HasPass {
			return nil, nil
		}
		return scrambleEd25519Password(authData, []byte(mc.cfg.Password))

	default:
		return nil, errors.New("mysql: unknown auth plugin: " + plugin)
	}
}

func (mc *Connection) tlsActive() bool {
	return mc.cfg.SSLMode != SSLNone && mc.cfg.TLS != nil
}

// handleAuthResult drives the handshake's post-HandshakeResponse41
// exchange to completion: plain OK/ERR, AuthSwitchRequest (possibly
// several in a row), and the caching_sha2_password/sha256_password
// fast/full-auth sub-protocols. Grounded on go-sql-driver/mysql's
// handleAuthResult.
func (mc *Connection) handleAuthResult(cfg *Config) error {
	data, err := mc.readPacket()
	if err != nil {
		return err
	}

	round := 0
	for {
		round++
		mc.session.setAuthenticating(mc.session.authPlugin(), round)

		switch data[0] {
		case iOK:
			return mc.handleOkPacket(data)

		case iERR:
			return mc.handleErrorPacket(data)

		case iEOF:
			// legacy AuthSwitchRequest encoding (pre-4.1.1 style)
			pluginEnd := bytesIndex(data[1:], 0)
			var pluginName string
			var authData []byte
			if pluginEnd < 0 {
				pluginName = authOldPassword
				authData = data[1:]
			} else {
				pluginName = string(data[1 : 1+pluginEnd])
				authData = data[1+pluginEnd+1:]
			}
			mc.session.setAuthenticating(pluginName, round)
			resp, err := mc.genAuthResponse(authData, pluginName)
			if err != nil {
				return err
			}
			if err := mc.writeAuthSwitchPacket(resp); err != nil {
				return err
			}
			mc.stats.AuthRetries++

		case iAuthMoreData:
			more := data[1:]
			switch mc.session.authPlugin() {
			case authCachingSHA2:
				if len(more) == 0 {
					break
				}
				switch more[0] {
				case cachingSHA2FastAuth:
					// server accepted the scramble; one more OK/ERR follows.
				case cachingSHA2FullAuth:
					if err := mc.cachingSHA2FullAuth(); err != nil {
						return err
					}
				}
			case authSHA256Password:
				if err := mc.sha256FullAuth(more); err != nil {
					return err
				}
			}

		default:
			return ErrMalformPkt
		}

		data, err = mc.readPacket()
		if err != nil {
			return err
		}
	}
}

// cachingSHA2FullAuth sends the cleartext password once full
// authentication is requested: directly over TLS/unix, or RSA-encrypted
// against the server's public key otherwise.
func (mc *Connection) cachingSHA2FullAuth() error {
	if mc.tlsActive() {
		return mc.writeClearAuthPacket(mc.cfg.Password)
	}
	if !mc.cfg.AllowPublicKeyRetrieval {
		return ErrNoPublicKey
	}
	if err := mc.writePublicKeyRequestPacket(); err != nil {
		return err
	}
	pubKeyData, err := mc.readPacket()
	if err != nil {
		return err
	}
	pubKey, err := parseRSAPublicKey(pubKeyData[1:])
	if err != nil {
		return err
	}
	seed := mc.authSeed
	enc, err := encryptPassword(mc.cfg.Password, seed, pubKey)
	if err != nil {
		return err
	}
	return mc.writeAuthSwitchPacket(enc)
}

// sha256FullAuth implements sha256_password's full-auth handshake: the
// server's AuthMoreData payload is its PEM-encoded RSA public key.
func (mc *Connection) sha256FullAuth(pubKeyPEM []byte) error {
	if mc.tlsActive() {
		return nil // cleartext password was already sent in genAuthResponse
	}
	if !mc.cfg.AllowPublicKeyRetrieval {
		return ErrNoPublicKey
	}
	pubKey, err := parseRSAPublicKey(pubKeyPEM)
	if err != nil {
		return err
	}
	seed := mc.authSeed
	enc, err := encryptPassword(mc.cfg.Password, seed, pubKey)
	if err != nil {
		return err
	}
	return mc.writeAuthSwitchPacket(enc)
}

func parseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("mysql: no PEM data found in server's public key response")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("mysql: server's public key is not an RSA key")
	}
	return rsaKey, nil
}

func encryptPassword(password string, seed []byte, pub *rsa.PublicKey) ([]byte, error) {
	plain := xorBytes([]byte(password+"\x00"), seed)
	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plain, nil)
}

func xorBytes(data, seed []byte) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ seed[i%len(seed)]
	}
	return out
}

// scrambleNativePassword implements mysql_native_password:
// SHA1(password) XOR SHA1(seed + SHA1(SHA1(password))).
func scrambleNativePassword(seed, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}
	crypt := sha1.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(stage1)
	stage2 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(seed)
	crypt.Write(stage2)
	scramble := crypt.Sum(nil)

	for i := range scramble {
		scramble[i] ^= stage1[i]
	}
	return scramble
}

// scrambleCachingSHA2Password implements caching_sha2_password's fast
// path: XOR(SHA256(password), SHA256(SHA256(SHA256(password)), seed)).
func scrambleCachingSHA2Password(seed, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}
	crypt := sha256.New()
	crypt.Write(password)
	stage1 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(stage1)
	stage2 := crypt.Sum(nil)

	crypt.Reset()
	crypt.Write(stage2)
	crypt.Write(seed)
	stage3 := crypt.Sum(nil)

	for i := range stage3 {
		stage3[i] ^= stage1[i]
	}
	return stage3
}

// scrambleOldPassword implements the pre-4.1 mysql_old_password hash,
// kept only behind the AllowOldPasswords opt-in for legacy servers.
func scrambleOldPassword(seed, password []byte) []byte {
	if len(password) == 0 {
		return nil
	}
	hashPass := pwHash(password)
	hashSeed := pwHash(seed)

	var seed1 uint32 = hashPass[0] ^ hashSeed[0]
	var seed2 uint32 = hashPass[1] ^ hashSeed[1]

	out := make([]byte, len(seed))
	for i := range seed {
		seed1 = (seed1*3 + seed2) % 33554432
		seed2 = (seed1 + seed2 + 33) % 33554432
		out[i] = byte(uint32(float64(seed1)/33554432.0*31) + 64)
	}
	extra := byte(uint32(float64(seed1)/33554432.0*31) + 64)
	for i := range out {
		out[i] ^= extra
	}
	return out
}

func pwHash(password []byte) [2]uint32 {
	var nr, add, nr2 uint32 = 1345345333, 7, 0x12345671
	for _, c := range password {
		if c == ' ' || c == '\t' {
			continue
		}
		tmp := uint32(c)
		nr ^= (((nr & 63) + add) * tmp) + (nr << 8)
		nr2 += (nr2 << 8) ^ nr
		add += tmp
	}
	return [2]uint32{nr & 0x7fffffff, nr2 & 0x7fffffff}
}
