package coresight

import "fmt"

// Permission is one field of the authentication status register.
type Permission uint8

const (
	NotImplemented Permission = iota
	Granted
	Denied
)

func (p Permission) String() string {
	switch p {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "not implemented"
	}
}

// decodePermission maps a 2-bit field: bit 0 set means granted, otherwise
// bit 1 set means implemented but disabled.
func decodePermission(field uint32) Permission {
	switch {
	case field&1 != 0:
		return Granted
	case field&2 != 0:
		return Denied
	}
	return NotImplemented
}

// AuthField names one debug privilege.
type AuthField struct {
	Name       string
	Permission Permission
}

// AuthStatus is the decoded DBGAUTHSTATUS register.
type AuthStatus struct {
	Raw uint32

	PublicInvasive    Permission
	PublicNonInvasive Permission
	SecureInvasive    Permission
	SecureNonInvasive Permission
}

// DecodeAuthStatus splits raw into its four 2-bit fields, lowest first.
func DecodeAuthStatus(raw uint32) AuthStatus {
	return AuthStatus{
		Raw:               raw,
		PublicInvasive:    decodePermission(raw),
		PublicNonInvasive: decodePermission(raw >> 2),
		SecureInvasive:    decodePermission(raw >> 4),
		SecureNonInvasive: decodePermission(raw >> 6),
	}
}

// Fields lists the privileges in register order.
func (a AuthStatus) Fields() []AuthField {
	return []AuthField{
		{"public invasive debug", a.PublicInvasive},
		{"public non-invasive debug", a.PublicNonInvasive},
		{"secure invasive debug", a.SecureInvasive},
		{"secure non-invasive debug", a.SecureNonInvasive},
	}
}

// ReadAuthStatus reads DBGAUTHSTATUS of the component at base.
func ReadAuthStatus(mem Memory, base uint32) (AuthStatus, error) {
	raw, err := mem.Read(base + RegAuthStatus)
	if err != nil {
		return AuthStatus{}, fmt.Errorf("coresight: auth status: %w", err)
	}
	return DecodeAuthStatus(raw), nil
}
