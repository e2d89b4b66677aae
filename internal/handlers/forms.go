package handlers

import (
	"io"
	"net/http"
	"strings"
)

// postForm maps exactly the writable post fields. The image is read
// separately on create and is not editable afterwards.
type postForm struct {
	Title       string
	Description string
	Body        string
}

func postFormFromRequest(r *http.Request) postForm {
	return postForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Body:        strings.TrimSpace(r.FormValue("body")),
	}
}

// readImage drains the uploaded file fully at request time. A missing
// file part returns nil bytes and lets the store report the
// validation error.
func readImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, nil
	}
	defer file.Close()
	return io.ReadAll(file)
}

type contactForm struct {
	Name    string
	Subject string
	Email   string
	Message string
}

func contactFormFromRequest(r *http.Request) contactForm {
	return contactForm{
		Name:    strings.TrimSpace(r.FormValue("name")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Email:   strings.TrimSpace(r.FormValue("email")),
		Message: strings.TrimSpace(r.FormValue("message")),
	}
}

// validate returns a user-facing message, or "" when the form is fine.
func (f contactForm) validate() string {
	if f.Name == "" || f.Subject == "" || f.Email == "" || f.Message == "" {
		return "All fields are required"
	}
	if !strings.Contains(f.Email, "@") {
		return "Invalid email address"
	}
	return ""
}
