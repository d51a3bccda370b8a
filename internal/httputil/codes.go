package httputil

// Machine-readable error codes returned alongside human-readable messages.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidation         = "validation_failed"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeMissingAuth        = "missing_auth"
	CodeTokenExpired       = "token_expired"
	CodeInvalidToken       = "invalid_token"
	CodeInvalidTokenUserID = "invalid_token_user_id"
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeAlreadyExists      = "already_exists"
	CodeNotFound           = "not_found"
	CodeLimitReached       = "limit_reached"
	CodeInternalError      = "internal_error"
)
