package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrUnauthorized = ErrorResponse{
		Status:  "error",
		Error:   "unauthorized",
		Details: "Authentication required",
	}

	ErrForbidden = ErrorResponse{
		Status:  "error",
		Error:   "forbidden",
		Details: "Insufficient permissions",
	}

	ErrInvalidRefreshToken = ErrorResponse{
		Status:  "error",
		Error:   "invalid_refresh_token",
		Details: "Invalid or expired refresh token",
	}

	ErrInternal = ErrorResponse{
		Status: "error",
		Error:  "internal_error",
	}
)
