package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dcode-github/realtor_listing/backend/apperror"
	"github.com/dcode-github/realtor_listing/backend/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const (
	FeatureImageField  = "feature_image"
	GalleryImagesField = "property_images"

	MaxGalleryImages = 10
	maxImageBytes    = 5 << 20
	multipartMemory  = 8 << 20
)

// UploadFeatureImage stores a single image in the temporary namespace.
func UploadFeatureImage(uploader Uploader, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, found := realtorOf(w, r, log); !found {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+multipartMemory)
		file, header, err := r.FormFile(FeatureImageField)
		if err != nil {
			fail(w, r, log, "Feature image missing from form", apperror.Validation("An image file is required", FeatureImageField))
			return
		}
		defer file.Close()

		asset, err := storeImage(r, uploader, file, header, FeatureImageField)
		if err != nil {
			fail(w, r, log, "Feature image upload failed", err)
			return
		}
		ok(w, http.StatusCreated, "Image uploaded", asset)
	}
}

// UploadGalleryImages stores up to ten images. When one fails the images
// already stored by this request are removed again.
func UploadGalleryImages(uploader Uploader, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, found := realtorOf(w, r, log); !found {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, MaxGalleryImages*maxImageBytes+multipartMemory)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			fail(w, r, log, "Error parsing multipart form", apperror.Validation("Invalid multipart form", GalleryImagesField))
			return
		}
		headers := r.MultipartForm.File[GalleryImagesField]
		headers = append(headers, r.MultipartForm.File[GalleryImagesField+"[]"]...)
		if len(headers) == 0 {
			fail(w, r, log, "Gallery images missing from form", apperror.Validation("At least one image file is required", GalleryImagesField))
			return
		}
		if len(headers) > MaxGalleryImages {
			fail(w, r, log, "Too many gallery images", apperror.Validation(fmt.Sprintf("At most %d images are allowed", MaxGalleryImages), GalleryImagesField))
			return
		}

		assets := make([]models.ImageAsset, 0, len(headers))
		for _, header := range headers {
			asset, err := openAndStore(r, uploader, header)
			if err != nil {
				for _, stored := range assets {
					if delErr := uploader.Delete(r.Context(), stored.PublicID); delErr != nil {
						log.WithError(delErr).WithField("public_id", stored.PublicID).Warn("Rollback of uploaded image failed")
					}
				}
				fail(w, r, log, "Gallery image upload failed", err)
				return
			}
			assets = append(assets, asset)
		}
		ok(w, http.StatusCreated, "Images uploaded", assets)
	}
}

func openAndStore(r *http.Request, uploader Uploader, header *multipart.FileHeader) (models.ImageAsset, error) {
	file, err := header.Open()
	if err != nil {
		return models.ImageAsset{}, apperror.Upload(err)
	}
	defer file.Close()
	return storeImage(r, uploader, file, header, GalleryImagesField)
}

func storeImage(r *http.Request, uploader Uploader, file multipart.File, header *multipart.FileHeader, field string) (models.ImageAsset, error) {
	if header.Size > maxImageBytes {
		return models.ImageAsset{}, apperror.Validation(fmt.Sprintf("%s exceeds the 5MB limit", header.Filename), field)
	}
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return models.ImageAsset{}, apperror.Upload(err)
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return models.ImageAsset{}, apperror.Validation(fmt.Sprintf("%s is not an image", header.Filename), field)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return models.ImageAsset{}, apperror.Upload(err)
	}
	return uploader.Upload(r.Context(), file, mtype.Extension())
}
