package errors

import "fmt"

var (
	ErrInvalidGroupID     = fmt.Errorf("invalid group id")
	ErrEmptyMemberID      = fmt.Errorf("member id must not be empty")
	ErrDuplicateMember    = fmt.Errorf("duplicate member id")
	ErrDuplicateAdmin     = fmt.Errorf("duplicate admin id")
	ErrAdminNotMember     = fmt.Errorf("admin is not a member of the group")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrGroupAlreadyExists = fmt.Errorf("group already exists")
	ErrContactNotFound    = fmt.Errorf("contact not found")
	ErrInvalidLocale      = fmt.Errorf("unsupported locale")
)
