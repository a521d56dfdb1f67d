package service

import (
	"github.com/google/uuid"

	"github.com/meetscribe/insights/internal/insighterrors"
)

// AssertOrganizationAccess verifies that a resource owned by actualOrgID may
// be touched by a caller from callerOrgID. On mismatch it fails with a
// not-found-shaped error — deliberately not a forbidden one, so the response
// for another tenant's recording is indistinguishable from a recording that
// does not exist.
//
// resource names what was looked up ("recording", "insight") for the error
// message.
func AssertOrganizationAccess(actualOrgID, callerOrgID uuid.UUID, resource string) error {
	if actualOrgID != callerOrgID {
		return insighterrors.NewNotFoundError(resource, resource+" not found")
	}

	return nil
}
