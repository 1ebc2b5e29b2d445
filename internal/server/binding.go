package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type scoreUpdateRequest struct {
	Score *int `json:"score" binding:"required,min=-2147483648,max=2147483647"`
}

type bindMessages map[string]map[string]string

var scoreUpdateMessages = bindMessages{
	"Score": {
		"required": "score is required",
		"min":      "score is out of range",
		"max":      "score is out of range",
	},
}

// decodeScoreUpdate parses and validates a scoreUpdate data object. Every
// failure wraps ErrInvalidPayload.
func decodeScoreUpdate(data json.RawMessage) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	var req scoreUpdateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "score" {
			return 0, fmt.Errorf("%w: score must be an integer", ErrInvalidPayload)
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPayload, resolveBindError(err, scoreUpdateMessages, "invalid score update"))
	}
	return *req.Score, nil
}

func resolveBindError(err error, messages bindMessages, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, verr := range verrs {
			if fieldMsgs, ok := messages[verr.Field()]; ok {
				if msg, ok := fieldMsgs[verr.Tag()]; ok {
					return msg
				}
			}
		}
	}
	if fallback != "" {
		return fallback
	}
	return "invalid request"
}
