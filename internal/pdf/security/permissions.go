package security

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Permissions are the user access flags from the P entry of an encryption
// dictionary. An unencrypted document grants everything.
type Permissions struct {
	Encrypted bool
	Print     bool // Bit 3
	Modify    bool // Bit 4 - Modify the contents of the document
	Copy      bool // Bit 5
	Annotate  bool // Bit 6 - Add or modify annotations, fill in form fields
	FillForms bool // Bit 9 - Fill in existing form fields, including signature fields
	Assemble  bool // Bit 11
}

// PermissionsFromP decodes a P value.
func PermissionsFromP(perms int32) Permissions {
	return Permissions{
		Encrypted: true,
		Print:     perms&0x04 != 0,
		Modify:    perms&0x08 != 0,
		Copy:      perms&0x10 != 0,
		Annotate:  perms&0x20 != 0,
		FillForms: perms&0x200 != 0,
		Assemble:  perms&0x800 != 0,
	}
}

// FullPermissions describes an unencrypted document.
func FullPermissions() Permissions {
	return Permissions{Print: true, Modify: true, Copy: true, Annotate: true, FillForms: true, Assemble: true}
}

// DocumentPermissions reads the permissions of a parsed document.
func DocumentPermissions(ctx *model.Context) Permissions {
	if ctx == nil || ctx.XRefTable == nil || ctx.E == nil {
		return FullPermissions()
	}
	return PermissionsFromP(int32(ctx.E.P))
}

// AllowsFilling reports whether field values may be entered.
func (p Permissions) AllowsFilling() bool {
	return !p.Encrypted || p.FillForms || p.Annotate
}

// AllowsStamping reports whether page content may be added.
func (p Permissions) AllowsStamping() bool {
	return !p.Encrypted || p.Modify
}

// Denied lists the refused operations relevant to signing.
func (p Permissions) Denied() []string {
	var denied []string
	if !p.AllowsFilling() {
		denied = append(denied, "fill_forms")
	}
	if !p.AllowsStamping() {
		denied = append(denied, "modify")
	}
	return denied
}

// String returns a human-readable representation of the permissions
func (p Permissions) String() string {
	if !p.Encrypted {
		return "Unencrypted"
	}
	var parts []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{p.Print, "Print"}, {p.Modify, "Modify"}, {p.Copy, "Copy"},
		{p.Annotate, "Annotate"}, {p.FillForms, "FillForms"}, {p.Assemble, "Assemble"},
	} {
		if f.on {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "No permissions granted"
	}
	return fmt.Sprintf("Allowed: %s", strings.Join(parts, ", "))
}
