package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies an AppError for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// AppError is a classified domain error carrying a numeric business code for the response envelope.
type AppError struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Status maps the kind onto an HTTP status.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(code int, msg string) *AppError {
	return &AppError{Kind: KindBadRequest, Code: code, Message: msg}
}
func forbidden(code int, msg string) *AppError {
	return &AppError{Kind: KindForbidden, Code: code, Message: msg}
}
func notFound(code int, msg string) *AppError {
	return &AppError{Kind: KindNotFound, Code: code, Message: msg}
}
func conflict(code int, msg string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: msg}
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrEmptyUpdate = badRequest(40001, "no fields to update")

	ErrInvalidEvidence      = badRequest(40010, "at least one of photo, video or caption is required")
	ErrCaptionTooLong       = badRequest(40011, "caption must be at most 500 characters")
	ErrCheckinEditWindow    = badRequest(40012, "check-ins can only be edited on the day they were made")
	ErrChallengeNotOpen     = badRequest(40013, "challenge is not accepting check-ins")
	ErrNoHitchesRemaining   = badRequest(40020, "no hitches remaining for this challenge")
	ErrNoValidTargets       = badRequest(40021, "no valid targets to remind")
	ErrInvalidHitchTargets  = badRequest(40022, "target_user_ids must contain 1-10 users")
	ErrInvalidHabitCount    = badRequest(40030, "a challenge needs between 1 and 4 habits")
	ErrDuplicateHabits      = badRequest(40031, "habit_ids must not contain duplicates")
	ErrUnknownHabits        = badRequest(40032, "some habit ids were not found")
	ErrInvalidDateRange     = badRequest(40033, "end_date must be after start_date")
	ErrChallengeTooLong     = badRequest(40034, "challenge duration cannot exceed 365 days")
	ErrInvalidInviteCode    = badRequest(40035, "invite code must be 6 letters or digits")
	ErrAlreadyMember        = badRequest(40036, "already a member of this challenge")
	ErrChallengeFull        = badRequest(40037, "challenge is full")
	ErrCreatorCannotLeave   = badRequest(40038, "the creator cannot leave the challenge")
	ErrAlreadyLeft          = badRequest(40039, "already left this challenge")
	ErrInvalidTransition    = badRequest(40040, "status change not allowed")
	ErrInvalidChallengeName = badRequest(40042, "name must be 1-200 characters")
	ErrDescriptionTooLong   = badRequest(40043, "description must be at most 2000 characters")
	ErrInvalidChallengeType = badRequest(40044, "type must be individual or group")
	ErrInvalidCheckinType   = badRequest(40045, "checkin_type must be photo, video, caption or any")
	ErrInvalidDate          = badRequest(40046, "dates must be in YYYY-MM-DD form")
	ErrInvalidMaxMembers    = badRequest(40047, "max_members must be between 1 and 50")
	ErrMaxMembersTooLow     = badRequest(40041, "max_members cannot be below the current member count")
	ErrSelfFriend           = badRequest(40050, "cannot send a friend request to yourself")
	ErrRequestNotPending    = badRequest(40051, "friend request is no longer pending")
	ErrSelfUnfriend         = badRequest(40052, "cannot remove yourself")
	ErrInvalidPushToken     = badRequest(40060, "invalid Expo push token format")
	ErrInvalidMediaKind     = badRequest(40070, "upload type must be photo, video or avatar")
	ErrInvalidContentType   = badRequest(40071, "file type not allowed")
	ErrFileTooLarge         = badRequest(40072, "file exceeds the size limit")
	ErrInvalidMediaURL      = badRequest(40073, "not a storage object URL")
	ErrUnknownBucket        = badRequest(40074, "unknown storage bucket")
	ErrSearchQueryTooShort  = badRequest(40080, "search query must be at least 2 characters")

	ErrUnauthenticated = &AppError{Kind: KindUnauthenticated, Code: 40110, Message: "unauthorized"}

	ErrNotMember           = forbidden(40310, "not a member of this challenge")
	ErrNotActiveMember     = forbidden(40311, "membership is not active")
	ErrInsufficientRole    = forbidden(40312, "only the creator or an admin can do this")
	ErrKickedFromChallenge = forbidden(40313, "you were removed from this challenge")
	ErrNotCheckinOwner     = forbidden(40314, "you can only modify your own check-ins")
	ErrNotAddressee        = forbidden(40315, "only the recipient can respond to this request")
	ErrFriendBlocked       = forbidden(40316, "cannot send a friend request to this user")
	ErrNotObjectOwner      = forbidden(40317, "you can only delete your own files")
	ErrProfileHidden       = forbidden(40318, "you can only view friends or challenge partners")

	ErrChallengeNotFound    = notFound(40410, "challenge not found")
	ErrHabitNotInChallenge  = notFound(40411, "habit not found in this challenge")
	ErrCheckinNotFound      = notFound(40412, "check-in not found")
	ErrInviteCodeNotFound   = notFound(40413, "invalid invite code")
	ErrMembershipNotFound   = notFound(40414, "not a member of this challenge")
	ErrUserNotFound         = notFound(40415, "user not found")
	ErrFriendshipNotFound   = notFound(40416, "friendship not found")
	ErrNotificationNotFound = notFound(40417, "notification not found")
	ErrObjectNotFound       = notFound(40418, "file not found")

	ErrDuplicateCheckin     = conflict(40910, "already checked in for this habit today")
	ErrInviteCodeExhausted  = conflict(40911, "could not allocate a unique invite code")
	ErrAlreadyFriends       = conflict(40912, "already friends")
	ErrFriendRequestSent    = conflict(40913, "friend request already sent")
	ErrFriendRequestPending = conflict(40914, "this user already sent you a friend request")
	ErrObjectExists         = conflict(40915, "a file with this name already exists")
)

// isNotFound reports gorm's record-not-found.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicateKey reports a unique-index violation surfaced through gorm's TranslateError.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
