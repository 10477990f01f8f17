package mqttconn

import (
	"crypto/tls"
	"io/ioutil"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// MQTT parameters
const (
	QoS             = 1
	Retain          = false
	DefaultUsername = "unused"
	DefaultAudience = "deepdrone"
)

var ErrUnknownAlgorithm = errors.New("unknown signing algorithm")

type Options struct {
	Broker   string
	ClientID string
	Username string
	// PrivateKeyPath enables JWT authentication: the password is a token
	// signed with this key. Empty means no password.
	PrivateKeyPath string
	Algorithm      string
	Audience       string
	ConnectTimeout time.Duration
	Retries        int
}

func (o *Options) defaults() {
	if o.Username == "" {
		o.Username = DefaultUsername
	}
	if o.Algorithm == "" {
		o.Algorithm = "RS256"
	}
	if o.Audience == "" {
		o.Audience = DefaultAudience
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.Retries <= 0 {
		o.Retries = 3
	}
}

// Password generates the JWT used as the MQTT password.
func Password(keyData []byte, algorithm, audience string, now time.Time) (string, error) {
	var key interface{}
	var err error
	switch algorithm {
	case "RS256":
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyData)
	case "ES256":
		key, err = jwt.ParseECPrivateKeyFromPEM(keyData)
	default:
		return "", errors.Wrap(ErrUnknownAlgorithm, algorithm)
	}
	if err != nil {
		return "", errors.Wrap(err, "could not parse private key")
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(algorithm), &jwt.StandardClaims{
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(24 * time.Hour).Unix(),
		Audience:  audience,
	})
	pass, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "could not sign token")
	}
	return pass, nil
}

// ClientOptions builds paho options without connecting.
func ClientOptions(o Options) (*mqtt.ClientOptions, error) {
	o.defaults()
	if o.Broker == "" {
		return nil, errors.New("mqtt broker address missing")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetAutoReconnect(true).
		SetProtocolVersion(4) // Use MQTT 3.1.1

	if strings.HasPrefix(o.Broker, "ssl://") || strings.HasPrefix(o.Broker, "tls://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	if o.PrivateKeyPath != "" {
		keyData, err := ioutil.ReadFile(o.PrivateKeyPath)
		if err != nil {
			return nil, errors.Wrap(err, "could not read private key")
		}
		pass, err := Password(keyData, o.Algorithm, o.Audience, time.Now())
		if err != nil {
			return nil, err
		}
		opts.SetPassword(pass)
	}

	return opts, nil
}

// Connect creates a client and connects it, retrying on timeouts.
func Connect(o Options) (mqtt.Client, error) {
	opts, err := ClientOptions(o)
	if err != nil {
		return nil, err
	}
	o.defaults()

	client := mqtt.NewClient(opts)
	log.WithField("broker", o.Broker).Printf("Client ID: %s", o.ClientID)

	for i := 0; i < o.Retries; i++ {
		log.Printf("Connecting MQTT...")
		tok := client.Connect()
		if !tok.WaitTimeout(o.ConnectTimeout) {
			log.Println("Connection Timeout")
			continue
		}
		if err := tok.Error(); err != nil {
			return nil, errors.Wrapf(err, "could not connect to %s", o.Broker)
		}
		log.Printf("..Connected")
		return client, nil
	}

	return nil, errors.Errorf("could not connect to %s within %d attempts", o.Broker, o.Retries)
}
