package permission

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Policy is the ownership and access policy of a migrated profile container.
type Policy struct {
	// ProfileDir is the Profile folder inside the mounted destination container.
	ProfileDir string
	// TargetDir is the directory holding the destination container file.
	TargetDir string
	SID       string
	Username  string
}

// Apply runs every step of the policy. Steps are independent and never rolled back;
// their errors are collected and returned together.
func (p *Policy) Apply(ctx context.Context, applier Applier, logger *log.Entry) error {
	var result *multierror.Error

	user := SIDPrincipal(p.SID)
	logger = logger.WithField("profile_dir", p.ProfileDir)

	if err := WriteProfileData(p.ProfileDir, p.SID, p.Username); err != nil {
		result = multierror.Append(result, err)
	}

	profileGrants := []Grant{
		{Principal: user, Rights: RightsFullControl, Inherit: true},
		{Principal: System, Rights: RightsFullControl, Inherit: true},
		{Principal: Administrators, Rights: RightsFullControl, Inherit: true},
	}

	err := applier.SetOwnerAndACL(ctx, p.ProfileDir, System, profileGrants,
		ACLOptions{RemoveInherited: true, Recursive: true})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("profile folder acl: %w", err))
	}

	err = applier.SetOwnerAndACL(ctx, p.TargetDir, user,
		[]Grant{{Principal: user, Rights: RightsFullControl, Inherit: true}},
		ACLOptions{Recursive: true})
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("target directory acl: %w", err))
	}

	if err := applier.ClearAttributes(ctx, p.ProfileDir); err != nil {
		result = multierror.Append(result, fmt.Errorf("profile attributes: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	logger.Debug(":closed_lock_with_key: Permissions applied")

	return nil
}

// ProfileDataPath is where the profile registry data file lives below a Profile folder.
func ProfileDataPath(profileDir string) string {
	return filepath.Join(profileDir, "AppData", "Local", "FSLogix", "ProfileData.reg")
}
