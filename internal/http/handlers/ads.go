package handlers

import (
	"fmt"
	"net/http"

	apierrors "github.com/cornenkiV/web-ads/internal/errors"
	"github.com/cornenkiV/web-ads/internal/models"
)

func (h *Handlers) ListAds(w http.ResponseWriter, r *http.Request) {
	f, err := models.AdFilterFromQuery(r.URL.Query())
	if err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("%w: %w", apierrors.ErrInvalidArgument, err))
		return
	}

	page, err := h.Ads.List(r.Context(), f)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) GetAd(w http.ResponseWriter, r *http.Request) {
	id, err := adID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ad, err := h.Ads.Get(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ad)
}

func (h *Handlers) CreateAd(w http.ResponseWriter, r *http.Request) {
	var in models.AdForm
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ad, err := h.Ads.Create(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ad)
}

func (h *Handlers) UpdateAd(w http.ResponseWriter, r *http.Request) {
	id, err := adID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in models.AdForm
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	ad, err := h.Ads.Update(r.Context(), id, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ad)
}

func (h *Handlers) DeleteAd(w http.ResponseWriter, r *http.Request) {
	id, err := adID(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.Ads.Delete(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
