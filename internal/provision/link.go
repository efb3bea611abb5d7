package provision

import (
	"encoding/base64"
	"fmt"
	"net/url"
)

// Link identifies a device asking to join the account: its ephemeral id and
// the public key it generated for the provisioning envelope. Consumed once by
// the link operation, never persisted.
type Link struct {
	DeviceID  string
	DeviceKey []byte
}

// ParseLink parses a device-linking URI of the form
//
//	sgnl://linkdevice?uuid=<device id>&pub_key=<base64url key>
//
// Only the syntax is checked here; whether the key is cryptographically
// usable is decided when the envelope is sealed.
func ParseLink(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("failed to parse device link: %w", err)
	}
	if u.Scheme != "sgnl" || u.Host != "linkdevice" {
		return Link{}, fmt.Errorf("not a device link uri: %q", raw)
	}

	q := u.Query()
	deviceID := q.Get("uuid")
	if deviceID == "" {
		return Link{}, fmt.Errorf("device link misses uuid")
	}

	rawKey := q.Get("pub_key")
	if rawKey == "" {
		return Link{}, fmt.Errorf("device link misses pub_key")
	}
	key, err := base64.RawURLEncoding.DecodeString(rawKey)
	if err != nil {
		return Link{}, fmt.Errorf("failed to decode device key: %w", err)
	}

	return Link{DeviceID: deviceID, DeviceKey: key}, nil
}
