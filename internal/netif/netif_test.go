package netif

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddrFromMAC(t *testing.T) {
	mac, err := net.ParseMAC("1c:ba:8c:a3:01:ff")
	require.NoError(t, err)

	addr, err := AddrFromMAC(mac)
	require.NoError(t, err)
	require.Equal(t, "10.163.1.255/8", addr)
}

func TestAddrFromMACShort(t *testing.T) {
	_, err := AddrFromMAC(net.HardwareAddr{0x01, 0x02})
	require.Error(t, err)
}
