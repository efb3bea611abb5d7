package provision

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLink(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	raw := "sgnl://linkdevice?uuid=dev-1&pub_key=" + base64.RawURLEncoding.EncodeToString(key)

	link, err := ParseLink(raw)
	require.NoError(t, err)
	require.Equal(t, "dev-1", link.DeviceID)
	require.Equal(t, key, link.DeviceKey)
}

func TestParseLink_Rejects(t *testing.T) {
	cases := map[string]string{
		"wrong scheme": "https://linkdevice?uuid=x&pub_key=AQID",
		"wrong host":   "sgnl://other?uuid=x&pub_key=AQID",
		"missing uuid": "sgnl://linkdevice?pub_key=AQID",
		"missing key":  "sgnl://linkdevice?uuid=x",
		"bad base64":   "sgnl://linkdevice?uuid=x&pub_key=!!!",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLink(raw)
			require.Error(t, err)
		})
	}
}
