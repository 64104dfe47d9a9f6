package permission

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	sidRevision       = 1
	sidAuthorityBytes = 6
	maxSubAuthorities = 15
)

var errMalformedSID = errors.New("malformed security identifier")

// WriteProfileData writes the profile list registry entries of the user into the profile,
// so the profile container is recognized on first sign-in.
func WriteProfileData(profileDir, sid, username string) error {
	content, err := ProfileData(sid, username)
	if err != nil {
		return err
	}

	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(content)
	if err != nil {
		return fmt.Errorf("failed to encode profile data: %w", err)
	}

	path := ProfileDataPath(profileDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("failed to write profile data: %w", err)
	}

	return nil
}

// ProfileData renders the registry file content.
func ProfileData(sid, username string) (string, error) {
	raw, err := SIDBytes(sid)
	if err != nil {
		return "", err
	}

	hexBytes := make([]string, len(raw))
	for i, b := range raw {
		hexBytes[i] = fmt.Sprintf("%02x", b)
	}

	imagePath := strings.ReplaceAll(`C:\Users\`+username, `\`, `\\`)

	lines := []string{
		"Windows Registry Editor Version 5.00",
		"",
		`[HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Windows NT\CurrentVersion\ProfileList\` + sid + `]`,
		`"ProfileImagePath"="` + imagePath + `"`,
		`"FSL_OriginalProfileImagePath"="` + imagePath + `"`,
		`"Flags"=dword:00000000`,
		`"State"=dword:00000000`,
		`"ProfileLoadTimeLow"=dword:00000000`,
		`"ProfileLoadTimeHigh"=dword:00000000`,
		`"RefCount"=dword:00000000`,
		`"RunLogonScriptSync"=dword:00000000`,
		`"Sid"=hex:` + strings.Join(hexBytes, ","),
		"",
	}

	return strings.Join(lines, "\r\n"), nil
}

// SIDBytes converts the string form of a security identifier (S-1-5-21-...) to its binary form.
func SIDBytes(sid string) ([]byte, error) {
	parts := strings.Split(sid, "-")
	if len(parts) < 3 || !strings.EqualFold(parts[0], "S") {
		return nil, fmt.Errorf("%w: %q", errMalformedSID, sid)
	}

	revision, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || revision != sidRevision {
		return nil, fmt.Errorf("%w: %q", errMalformedSID, sid)
	}

	authority, err := strconv.ParseUint(parts[2], 10, 48)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errMalformedSID, sid)
	}

	subs := parts[3:]
	if len(subs) > maxSubAuthorities {
		return nil, fmt.Errorf("%w: %q", errMalformedSID, sid)
	}

	out := make([]byte, 0, 2+sidAuthorityBytes+4*len(subs))
	out = append(out, byte(revision), byte(len(subs)))

	var auth [8]byte
	binary.BigEndian.PutUint64(auth[:], authority)
	out = append(out, auth[8-sidAuthorityBytes:]...)

	for _, s := range subs {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errMalformedSID, sid)
		}

		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		out = append(out, b[:]...)
	}

	return out, nil
}
