package handlers

// Common error message constants shared across handlers
const (
	ErrMsgInvalidRequestBody  = "Invalid request body"
	ErrMsgInvalidAssignmentID = "Invalid assignment ID"
	ErrMsgUnauthorized        = "Unauthorized"
	ErrMsgInternal            = "Internal server error"
	ErrMsgPayloadTooLarge     = "Request body too large"
)

// Request body limits
const (
	maxSignBodyBytes    = 10 << 20
	maxWebhookBodyBytes = 1 << 20
	maxJSONBodyBytes    = 1 << 20
)
