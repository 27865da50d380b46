package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxJSONBody = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type SignupForm struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=100"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefineForm struct {
	Message string `json:"message" validate:"required,max=4000"`
}

func fieldMessage(field, tag string) string {
	switch field {
	case "Email":
		if tag == "required" {
			return "Please enter your email"
		}
		return "Please enter a valid email"
	case "Password":
		switch tag {
		case "required":
			return "Please enter your password"
		case "min":
			return "Your password must be at least 8 characters"
		}
	case "FullName":
		return "Your name should be at most 100 characters"
	case "Message":
		if tag == "required" {
			return "Please enter a message"
		}
		return "Your message is too long"
	}
	return "Invalid request"
}

// validationMessage turns the first failed rule into a user-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(verrs[0].Field(), verrs[0].Tag())
	}
	return "Invalid request"
}

// decodeForm reads a JSON body into dst and validates it. On failure it
// writes a 400 and returns false.
func decodeForm(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
