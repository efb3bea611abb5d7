package remote

import "github.com/google/uuid"

// WhoAmIResponse is the service's authoritative view of our identifiers.
type WhoAmIResponse struct {
	Number    string    `json:"number"`
	ServiceID uuid.UUID `json:"serviceId"`
}

// ChangeNumberResult is returned by a successful number change. The manager
// treats the call's success as the sole gate and does not inspect the payload.
type ChangeNumberResult struct {
	Number    string    `json:"number"`
	ServiceID uuid.UUID `json:"serviceId"`
}

// DeviceInfo describes one linked device as reported by the service.
type DeviceInfo struct {
	ID       int    `json:"id"`
	Name     []byte `json:"name,omitempty"`
	Created  int64  `json:"created"`
	LastSeen int64  `json:"lastSeen"`
}

// PreKey is a single one-time prekey uploaded for asynchronous session setup.
type PreKey struct {
	ID        uint32 `json:"keyId"`
	PublicKey []byte `json:"publicKey"`
}

// Capabilities is the fixed capability set advertised with every attributes
// push.
type Capabilities struct {
	SenderKey           bool `json:"senderKey"`
	AnnouncementGroup   bool `json:"announcementGroup"`
	ChangeNumber        bool `json:"changeNumber"`
	Storage             bool `json:"storage"`
	UnauthenticatedData bool `json:"unauthenticatedData"`
}

// DefaultCapabilities is advertised by this client version.
var DefaultCapabilities = Capabilities{
	SenderKey:           true,
	AnnouncementGroup:   true,
	ChangeNumber:        true,
	Storage:             true,
	UnauthenticatedData: true,
}

// AccountAttributes is the full attribute set pushed by the manager after
// identity-affecting operations.
type AccountAttributes struct {
	RegistrationID                 uint32       `json:"registrationId"`
	FetchesMessages                bool         `json:"fetchesMessages"`
	RegistrationLock               string       `json:"registrationLock,omitempty"`
	UnidentifiedAccessKey          []byte       `json:"unidentifiedAccessKey,omitempty"`
	UnrestrictedUnidentifiedAccess bool         `json:"unrestrictedUnidentifiedAccess"`
	Capabilities                   Capabilities `json:"capabilities"`
	DiscoverableByPhoneNumber      bool         `json:"discoverableByPhoneNumber"`
	Name                           []byte       `json:"name,omitempty"`
}
