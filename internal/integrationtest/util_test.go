//go:build windows

package integrationtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func currentUser(t *testing.T) (string, string) {
	t.Helper()

	tokenUser, err := windows.GetCurrentProcessToken().GetTokenUser()
	require.NoError(t, err)

	sid := tokenUser.User.Sid
	account, _, _, err := sid.LookupAccount("")
	require.NoError(t, err)

	return sid.String(), account
}
