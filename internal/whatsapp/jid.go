package whatsapp

import (
	"fmt"

	"go.mau.fi/whatsmeow/types"

	"github.com/pompomputin/wwebjs-webui-docker/internal/address"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// ToJID maps a canonical address onto the protocol's native identifier.
// Addresses already in native form are parsed as-is.
func ToJID(addr string) (types.JID, error) {
	if !address.Valid(addr) {
		return types.EmptyJID, fmt.Errorf("%w: invalid address %q", model.ErrInvalidArgument, addr)
	}
	user := address.User(addr)
	switch address.Domain(addr) {
	case address.UserSuffix:
		return types.NewJID(user, types.DefaultUserServer), nil
	case address.GroupSuffix:
		return types.NewJID(user, types.GroupServer), nil
	}
	jid, err := types.ParseJID(addr)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err)
	}
	return jid, nil
}

// FromJID maps a native identifier back to its canonical address. Device
// suffixes are dropped. Servers without a canonical form keep the native string.
func FromJID(jid types.JID) string {
	jid = jid.ToNonAD()
	switch jid.Server {
	case types.DefaultUserServer:
		return jid.User + "@" + address.UserSuffix
	case types.GroupServer:
		return jid.User + "@" + address.GroupSuffix
	}
	return jid.String()
}
