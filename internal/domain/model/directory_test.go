package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionPortOrDefault(t *testing.T) {
	port := 2222
	tcs := []struct {
		name string
		conn Connection
		want int
	}{
		{name: "explicit port", conn: Connection{Protocol: ProtocolSSH, Meta: ConnectionMeta{Port: &port}}, want: 2222},
		{name: "ssh default", conn: Connection{Protocol: ProtocolSSH}, want: 22},
		{name: "rdp default", conn: Connection{Protocol: ProtocolRDP}, want: 3389},
		{name: "unknown protocol falls back to rdp", conn: Connection{Protocol: "vnc"}, want: 3389},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.conn.PortOrDefault())
		})
	}

	zero := 0
	conn := Connection{Protocol: ProtocolSSH, Meta: ConnectionMeta{Port: &zero}}
	assert.Equal(t, 22, conn.PortOrDefault(), "zero port is treated as unset")
}

func TestAccessGrantKey(t *testing.T) {
	a := AccessGrant{Connection: Connection{ID: "c-1"}, AccessRule: AccessRule{ID: "ar-1"}}
	b := AccessGrant{Connection: Connection{ID: "c-1"}, AccessRule: AccessRule{ID: "ar-2"}}
	c := AccessGrant{Connection: Connection{ID: "c-2"}, AccessRule: AccessRule{ID: "ar-1"}}

	assert.Equal(t, a.Key(), a.Key())
	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
	assert.NotEqual(t, b.Key(), c.Key())
}

func TestTrueSetting(t *testing.T) {
	for _, value := range []string{"true", "TRUE", " True ", "1", "yes", "on"} {
		assert.True(t, TrueSetting(value), value)
	}
	for _, value := range []string{"false", "0", "no", "off", "", "enabled"} {
		assert.False(t, TrueSetting(value), value)
	}
}
