package handlers

const (
	// maxBodyBytes bounds every JSON request body
	maxBodyBytes = 1 << 20

	ErrInvalidJSON         = "Invalid request body"
	ErrInternalServerError = "Sorry, something went wrong. Please try again."
	ErrTooManyRequests     = "Too many requests. Please wait a moment and try again."
	ErrCSRF                = "Your session needs refreshing. Please try again."
	ErrNoProgressMsg       = "There is no setup in progress. Please start again."
	ErrNotFoundMsg         = "We couldn't find that. Please try again."
	ErrStepIncompleteMsg   = "Please finish this step before continuing."
	ErrAlreadyCompleteMsg  = "Your setup is already complete."
	ErrInvalidStepMsg      = "That setup step doesn't exist."
	ErrInvalidPINMsg       = "That PIN didn't match. Please try again."
	ErrVoiceUnavailableMsg = "Voice isn't available right now. Please use the screen instead."
)
