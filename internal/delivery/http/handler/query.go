package handler

import (
	"net/http"

	"tutorinminutes-backend/pkg/response"
	"tutorinminutes-backend/pkg/validator"

	"github.com/gorilla/schema"
)

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeAndValidateQuery fills dst from the query string and validates it.
// It writes the error response itself and reports whether to continue.
func decodeAndValidateQuery(w http.ResponseWriter, r *http.Request, d *schema.Decoder, v *validator.CustomValidator, dst interface{}) bool {
	if err := d.Decode(dst, r.URL.Query()); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return false
	}
	if err := v.Validate(dst); err != nil {
		response.ValidationError(w, v.FormatValidationErrors(err))
		return false
	}
	return true
}
