package request

// LoginRequest is bound from the login form or a JSON body. Emptiness is
// checked by the credential service so that the form can show its message.
type LoginRequest struct {
	Email     string `json:"email" form:"email" validate:"omitempty,max=254"`
	Password  string `json:"password" form:"password" validate:"max=256"`
	ReturnURL string `json:"returnUrl" form:"returnUrl" query:"returnUrl"`
}

type RegisterRequest struct {
	Email           string `json:"email" form:"email" validate:"omitempty,max=254"`
	Password        string `json:"password" form:"password" validate:"max=256"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"max=256"`
}
