package controllers

import (
	"net/http"

	"github.com/phonelife/storefront/api/responses"
	"github.com/phonelife/storefront/api/validators"
	checkoutsvc "github.com/phonelife/storefront/internal/checkout"
	"github.com/phonelife/storefront/pkg/enums"
	pkgerrors "github.com/phonelife/storefront/pkg/errors"
	"github.com/phonelife/storefront/pkg/logger"
)

type checkoutRequest struct {
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
	Email         string `json:"email"`
	Telephone     string `json:"telephone"`
	Adresse       string `json:"adresse"`
	Ville         string `json:"ville"`
	CodePostal    string `json:"codePostal"`
	PaymentMethod string `json:"paymentMethod"`
}

// Checkout places an order from the session cart. The cart is emptied only
// when the order was accepted.
func Checkout(svc checkoutsvc.Service, carts CartOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		store, err := sessionCart(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(validators.SanitizeString(payload.PaymentMethod, 16))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment method is invalid").
				WithDetails(map[string]any{"field": "paymentMethod"}))
			return
		}

		result, err := svc.PlaceOrder(r.Context(), store, checkoutsvc.Form{
			Nom:           payload.Nom,
			Prenom:        payload.Prenom,
			Email:         payload.Email,
			Telephone:     payload.Telephone,
			Adresse:       payload.Adresse,
			Ville:         payload.Ville,
			CodePostal:    payload.CodePostal,
			PaymentMethod: method,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
