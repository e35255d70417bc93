package controllers

import (
	"net/http"

	"github.com/IstiakDeveloper/orgreeni/api/validators"
	"github.com/IstiakDeveloper/orgreeni/pkg/pagination"
)

func pageFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: validators.QueryString(r, "cursor", 512),
	}, nil
}
