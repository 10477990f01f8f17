package mqttconn

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

func rsaKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return key, data
}

func TestPasswordRS256(t *testing.T) {
	key, data := rsaKey(t)
	now := time.Now()

	pass, err := Password(data, "RS256", "fleet", now)
	if err != nil {
		t.Fatal(err)
	}

	claims := &jwt.StandardClaims{}
	_, err = jwt.ParseWithClaims(pass, claims, func(tok *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if claims.Audience != "fleet" || claims.IssuedAt != now.Unix() {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.ExpiresAt != now.Add(24*time.Hour).Unix() {
		t.Fatalf("expires = %d", claims.ExpiresAt)
	}
}

func TestPasswordES256(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	if _, err := Password(data, "ES256", "fleet", time.Now()); err != nil {
		t.Fatal(err)
	}
}

func TestPasswordUnknownAlgorithm(t *testing.T) {
	_, data := rsaKey(t)
	_, err := Password(data, "HS256", "fleet", time.Now())
	if errors.Cause(err) != ErrUnknownAlgorithm {
		t.Fatalf("err = %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	_, data := rsaKey(t)
	path := filepath.Join(t.TempDir(), "key.pem")
	if err := ioutil.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	opts, err := ClientOptions(Options{Broker: "ssl://broker:8883", ClientID: "drone1", PrivateKeyPath: path})
	if err != nil {
		t.Fatal(err)
	}
	if opts.ClientID != "drone1" || opts.Username != DefaultUsername || opts.Password == "" {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config for ssl broker")
	}

	plain, err := ClientOptions(Options{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Password != "" {
		t.Fatal("expected no password without a key")
	}

	if _, err := ClientOptions(Options{}); err == nil {
		t.Fatal("expected error without broker")
	}
}
