// Package service holds the business rules between the HTTP handlers and the repositories.
package service

import (
	"inkwell/internal/imaging"
	"inkwell/internal/models"
)

// ImageStore persists uploaded pictures and returns the stored file name.
type ImageStore interface {
	SaveAvatar(in imaging.Upload, opts imaging.Options) (string, error)
	SavePostImage(in imaging.Upload, opts imaging.Options) (string, error)
	Remove(dir, name string)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func pageRequest(page, perPage int) models.PageRequest {
	return models.NewPageRequest(page, perPage)
}
