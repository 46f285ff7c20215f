package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidPosition    = "INVALID_POSITION"
	CodeInvalidTimeMode    = "INVALID_TIME_MODE"
	CodeInvalidOffer       = "INVALID_OFFER"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotYourTurn        = "NOT_YOUR_TURN"
	CodeStillYourTurn      = "STILL_YOUR_TURN"
	CodeProfileNotFound    = "PROFILE_NOT_FOUND"
	CodeGameNotFound       = "GAME_NOT_FOUND"
	CodeNotInGame          = "NOT_IN_GAME"
	CodeSlotOccupied       = "SLOT_OCCUPIED"
	CodeAlreadySeated      = "ALREADY_SEATED"
	CodeInvalidState       = "INVALID_STATE"
	CodeFieldOccupied      = "FIELD_OCCUPIED"
	CodeNoMovesToUndo      = "NO_MOVES_TO_UNDO"
	CodeConflict           = "CONFLICT"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidUsername    = "INVALID_USERNAME"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiError := Lookup(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiError})
}

// Lookup maps an error to its HTTP status and client-facing code.
// The websocket layer uses the same table for rejected events.
func Lookup(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrProfileNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeProfileNotFound, "Profile not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrNotInGame), errors.Is(err, model.ErrBindingNotFound):
		return &httpError{http.StatusForbidden, APIError{CodeNotInGame, "Not seated in this game"}}
	case errors.Is(err, model.ErrSlotOccupied):
		return &httpError{http.StatusConflict, APIError{CodeSlotOccupied, "Game is not open for joining"}}
	case errors.Is(err, model.ErrAlreadySeated):
		return &httpError{http.StatusConflict, APIError{CodeAlreadySeated, "Already seated in another game"}}
	case errors.Is(err, model.ErrInvalidState):
		return &httpError{http.StatusConflict, APIError{CodeInvalidState, "Not allowed in the current game state"}}
	case errors.Is(err, model.ErrNotYourTurn):
		return &httpError{http.StatusForbidden, APIError{CodeNotYourTurn, "Not your turn"}}
	case errors.Is(err, model.ErrStillYourTurn):
		return &httpError{http.StatusForbidden, APIError{CodeStillYourTurn, "Offering player still has the turn"}}
	case errors.Is(err, model.ErrFieldOccupied):
		return &httpError{http.StatusConflict, APIError{CodeFieldOccupied, "Field is already occupied"}}
	case errors.Is(err, model.ErrInvalidPosition):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPosition, "Invalid board position"}}
	case errors.Is(err, model.ErrInvalidTimeMode):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidTimeMode, "Time mode must be 5, 10 or 15"}}
	case errors.Is(err, model.ErrInvalidOffer):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidOffer, "Offer type must be redo or draw"}}
	case errors.Is(err, model.ErrNoMovesToUndo):
		return &httpError{http.StatusConflict, APIError{CodeNoMovesToUndo, "No moves to undo"}}
	case errors.Is(err, model.ErrVersionConflict), errors.Is(err, model.ErrLockNotAcquired):
		return &httpError{http.StatusConflict, APIError{CodeConflict, "Game is busy, try again"}}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidUsername, "Username must be 3-20 characters"}}
	case errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password must be at least 6 characters"}}
	}

	var storeErr *model.StoreError
	var upstreamErr *model.UpstreamError
	if errors.As(err, &storeErr) || errors.As(err, &upstreamErr) {
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStoreUnavailable, "Storage is unavailable"}}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
