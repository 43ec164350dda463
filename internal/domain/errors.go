package domain

import "fmt"

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Это позволяет использовать errors.Is()
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		return e.Code == t.Code
	}
	return false
}

const (
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeSeatsFull        = "SEATS_FULL"
	CodeAlreadyInvited   = "ALREADY_INVITED"
	CodeCannotInviteSelf = "CANNOT_INVITE_SELF"
	CodeInviteNotFound   = "INVITE_NOT_FOUND"
	CodeInviteExpired    = "INVITE_EXPIRED"
	CodeEmailMismatch    = "EMAIL_MISMATCH"
	CodeLicenseInactive  = "LICENSE_INACTIVE"
	CodeDuplicateEvent   = "DUPLICATE_EVENT"
	CodeUnknownAccount   = "UNKNOWN_ACCOUNT"
	CodeUnknownProduct   = "UNKNOWN_PRODUCT"
	CodeNotFound         = "NOT_FOUND"
	CodeBadRequest       = "BAD_REQUEST"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeInvalidSignature = "INVALID_SIGNATURE"
)

var (
	// ErrNotAuthorized - вызывающий не владеет активной командной лицензией
	ErrNotAuthorized = &DomainError{
		Code:    CodeNotAuthorized,
		Message: "You don't have permission to manage this team",
	}

	ErrInvalidEmail = &DomainError{
		Code:    CodeInvalidEmail,
		Message: "Please enter a valid email address",
	}

	// ErrSeatsFull - все места лицензии заняты (владелец занимает одно место неявно)
	ErrSeatsFull = &DomainError{
		Code:    CodeSeatsFull,
		Message: "All seats on this team are taken",
	}

	ErrAlreadyInvited = &DomainError{
		Code:    CodeAlreadyInvited,
		Message: "This person has already been invited to your team",
	}

	ErrCannotInviteSelf = &DomainError{
		Code:    CodeCannotInviteSelf,
		Message: "You can't invite yourself to your own team",
	}

	ErrInviteNotFound = &DomainError{
		Code:    CodeInviteNotFound,
		Message: "This invite is invalid or has already been used",
	}

	ErrInviteExpired = &DomainError{
		Code:    CodeInviteExpired,
		Message: "This invite has expired",
	}

	// ErrEmailMismatch используется только для errors.Is; сообщение с адресами строит NewEmailMismatchError
	ErrEmailMismatch = &DomainError{
		Code:    CodeEmailMismatch,
		Message: "This invite was sent to a different email address",
	}

	ErrLicenseInactive = &DomainError{
		Code:    CodeLicenseInactive,
		Message: "The team license for this invite is no longer active",
	}

	// ErrDuplicateEvent - событие уже обработано; вызывающему не возвращается
	ErrDuplicateEvent = &DomainError{
		Code:    CodeDuplicateEvent,
		Message: "event already processed",
	}

	ErrUnknownAccount = &DomainError{
		Code:    CodeUnknownAccount,
		Message: "account not found",
	}

	ErrUnknownProduct = &DomainError{
		Code:    CodeUnknownProduct,
		Message: "unknown product",
	}

	// ErrNotFound - ресурс не найден
	ErrNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "resource not found",
	}

	ErrUnauthenticated = &DomainError{
		Code:    CodeUnauthenticated,
		Message: "authentication required",
	}

	ErrInvalidSignature = &DomainError{
		Code:    CodeInvalidSignature,
		Message: "webhook signature verification failed",
	}
)

// NewNotFoundError создает ошибку NOT_FOUND с дополнительным контекстом
func NewNotFoundError(resource string) *DomainError {
	return &DomainError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

func NewEmailMismatchError(invitedEmail, accepterEmail string) *DomainError {
	return &DomainError{
		Code:    CodeEmailMismatch,
		Message: fmt.Sprintf("This invite was sent to %s but you are logged in as %s", invitedEmail, accepterEmail),
	}
}

func NewBadRequestError(message string) *DomainError {
	return &DomainError{
		Code:    CodeBadRequest,
		Message: message,
	}
}
