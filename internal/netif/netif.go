// Package netif brings up the cape's operator-facing ethernet
// interface at startup.
package netif

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/armazcape/armazd/internal/logfields"
)

// AddrFromMAC derives the default operator address from the interface
// MAC: 10.x.y.z/8 over the last three octets, so every cape lands on a
// stable, collision-free address without DHCP.
func AddrFromMAC(mac net.HardwareAddr) (string, error) {
	if len(mac) < 6 {
		return "", fmt.Errorf("short hardware address %s", mac)
	}
	return fmt.Sprintf("10.%d.%d.%d/8", mac[3], mac[4], mac[5]), nil
}

// EnsureUp sets the link up, assigns staticAddr (or the MAC-derived
// default when empty) and installs a default route through the link.
// Existing addresses and routes are left in place.
func EnsureUp(name, staticAddr string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return fmt.Errorf("netif: link %s: %w", name, err)
	}

	if link.Attrs().Flags&net.FlagUp == 0 {
		if err := netlink.LinkSetUp(link); err != nil {
			return fmt.Errorf("netif: set %s up: %w", name, err)
		}
	}

	cidr := staticAddr
	if cidr == "" {
		cidr, err = AddrFromMAC(link.Attrs().HardwareAddr)
		if err != nil {
			return fmt.Errorf("netif: derive address for %s: %w", name, err)
		}
		slog.Info("Generated default address from MAC",
			logfields.Interface(name),
			logfields.Address(cidr))
	}

	addr, err := netlink.ParseAddr(cidr)
	if err != nil {
		return fmt.Errorf("netif: parse address %q: %w", cidr, err)
	}
	if err := netlink.AddrAdd(link, addr); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("netif: add address %s to %s: %w", cidr, name, err)
	}

	route := &netlink.Route{LinkIndex: link.Attrs().Index}
	if err := netlink.RouteAdd(route); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("netif: add default route via %s: %w", name, err)
	}

	slog.Info("Interface configured",
		logfields.Interface(name),
		logfields.Address(cidr))
	return nil
}
